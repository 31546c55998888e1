package lobbysync

import (
	"slices"
	"time"

	"github.com/DoyleJ11/dipclient/internal/builder"
	"github.com/DoyleJ11/dipclient/internal/orders"
	"github.com/DoyleJ11/dipclient/internal/state"
	"github.com/DoyleJ11/dipclient/internal/submission"
)

// Notice is a transient message for the player. It disappears on its own
// once Expires has passed.
type Notice struct {
	Text    string
	At      time.Time
	Expires time.Time
}

// BuildReply is what a builder command produced, plus the session after it.
type BuildReply struct {
	Events     []builder.Event
	Session    builder.Session
	LegalTypes []orders.Type
}

// View is a copy of the sync state. Nothing in it aliases the loop's data.
type View struct {
	Code     string
	Username string

	Lobby *state.LobbyState
	Game  *state.GameSnapshot

	RoleKnown bool
	Power     string
	Observer  bool
	IsHost    bool

	Phase        string
	IndexPending bool
	Orderable    []string
	Session      builder.Session
	LegalTypes   []orders.Type

	Orders           map[string]string
	SubmissionStatus submission.Status
	Results          []submission.Result

	Notices             []Notice
	LastFetchError      string
	ConsecutiveFailures int
	LastSync            time.Time
}

func (s *Sync) view() View {
	s.pruneNotices()
	v := View{
		Code:                s.cfg.Code,
		Username:            s.cfg.Username,
		RoleKnown:           s.role.known,
		Power:               s.role.power,
		Observer:            s.role.observer,
		IsHost:              s.isHost(),
		Phase:               s.phase,
		IndexPending:        s.indexPending,
		Orderable:           s.builder.Index().Orderable(),
		Session:             s.builder.Session(),
		LegalTypes:          s.builder.LegalTypes(),
		Orders:              s.sub.Set().Snapshot(),
		SubmissionStatus:    s.sub.Status(),
		Results:             s.sub.Results(),
		Notices:             slices.Clone(s.notices),
		ConsecutiveFailures: s.failures,
		LastSync:            s.lastSync,
	}
	if s.lobby != nil {
		l := s.lobby.Clone()
		v.Lobby = &l
	}
	if s.game != nil {
		g := s.game.Clone()
		v.Game = &g
	}
	if s.lastFetchErr != nil {
		v.LastFetchError = s.lastFetchErr.Error()
	}
	return v
}

func (s *Sync) notify(text string) {
	s.pruneNotices()
	now := s.now()
	for i := range s.notices {
		if s.notices[i].Text == text {
			s.notices[i].Expires = now.Add(s.cfg.NoticeTTL)
			return
		}
	}
	s.notices = append(s.notices, Notice{Text: text, At: now, Expires: now.Add(s.cfg.NoticeTTL)})
}

func (s *Sync) pruneNotices() {
	now := s.now()
	s.notices = slices.DeleteFunc(s.notices, func(n Notice) bool { return !now.Before(n.Expires) })
}
