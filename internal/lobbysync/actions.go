package lobbysync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/builder"
	"github.com/DoyleJ11/dipclient/internal/state"
	"github.com/DoyleJ11/dipclient/internal/submission"
)

// canOrder reports why the local player cannot touch orders right now.
func (s *Sync) canOrder() error {
	switch {
	case s.lobby == nil || s.lobby.Status != state.StatusStarted || s.phase == "":
		return ErrNotStarted
	case s.role.observer:
		return ErrObserver
	case s.game != nil && s.game.IsDone:
		return ErrGameOver
	}
	return nil
}

func (s *Sync) isHost() bool {
	if s.lobby == nil {
		return false
	}
	if s.lobby.HostUsername != "" {
		return s.lobby.HostUsername == s.cfg.Username
	}
	p, ok := s.lobby.Find(s.cfg.Username)
	return ok && p.IsHost
}

func (s *Sync) buildReply(events []builder.Event) BuildReply {
	return BuildReply{
		Events:     events,
		Session:    s.builder.Session(),
		LegalTypes: s.builder.LegalTypes(),
	}
}

func (s *Sync) handleBuild(cmd builder.Command) (BuildReply, error) {
	if err := s.canOrder(); err != nil {
		return BuildReply{}, err
	}
	if s.sub.Locked() && cmd.Type != builder.CmdCancel {
		return s.buildReply(nil), submission.ErrSessionLocked
	}

	events, err := s.builder.Run(cmd)
	if err != nil {
		return s.buildReply(nil), err
	}
	if o, ok := builder.CompletedOrder(events); ok {
		if err := s.sub.Add(o); err != nil {
			s.builder.Cancel()
			return s.buildReply(events), err
		}
		s.logger.Debug("order built", zap.String("order", o.Text()))
		s.saveDrafts()
	}
	return s.buildReply(events), nil
}

func (s *Sync) handleInput(decide Decide) (BuildReply, error) {
	if err := s.canOrder(); err != nil {
		return BuildReply{}, err
	}
	var game *state.GameSnapshot
	if s.game != nil {
		g := s.game.Clone()
		game = &g
	}
	cmd, err := decide(s.builder.Session(), game)
	if err != nil {
		return s.buildReply(nil), err
	}
	return s.handleBuild(cmd)
}

func (s *Sync) handleEdit(req editReq) error {
	if err := s.canOrder(); err != nil {
		return err
	}
	var err error
	if req.clear {
		err = s.sub.Clear()
	} else {
		err = s.sub.Remove(req.remove)
	}
	if err != nil {
		return err
	}
	s.saveDrafts()
	return nil
}

func (s *Sync) handleSubmit(req submitReq) {
	if err := s.canOrder(); err != nil {
		req.reply <- submitResult{err: err}
		return
	}
	batch, err := s.sub.Prepare(req.wait)
	if err != nil {
		req.reply <- submitResult{err: err}
		return
	}
	// An unfinished order stays in the builder. It is not part of the batch
	// and cannot be finished while locked.
	s.logger.Info("submitting orders", zap.String("phase", batch.Phase), zap.Strings("orders", batch.Texts), zap.Bool("wait", batch.Wait))

	code := s.cfg.Code
	s.goHelper(func(ctx context.Context) {
		res, err := s.svc.SubmitOrders(ctx, code, batch.Texts, batch.Wait)
		s.post(submitDone{code: code, batch: batch, res: res, err: err, reply: req.reply})
	})
}

func (s *Sync) applySubmit(msg submitDone) {
	if msg.code != s.cfg.Code {
		msg.reply <- submitResult{err: ErrStaleResponse}
		return
	}
	err := s.sub.Complete(msg.batch, msg.res.Results, msg.err)
	switch {
	case errors.Is(err, submission.ErrStaleBatch):
		s.metrics.submit("stale")
		s.logger.Debug("discarding submit response for old phase", zap.String("phase", msg.batch.Phase))
		msg.reply <- submitResult{err: ErrStaleResponse}
	case err != nil:
		s.metrics.submit("error")
		s.logger.Warn("submit failed", zap.Error(err))
		s.notify("Submit failed: " + err.Error())
		msg.reply <- submitResult{results: s.sub.Results(), err: err}
	default:
		s.metrics.submit("ok")
		s.logger.Info("orders submitted", zap.String("phase", msg.batch.Phase), zap.Int("count", len(msg.batch.Texts)))
		msg.reply <- submitResult{results: s.sub.Results()}
	}
}

func (s *Sync) handleStart(req startReq) {
	switch {
	case s.lobby == nil:
		req.reply <- ErrNoLobby
		return
	case s.lobby.Status == state.StatusStarted:
		req.reply <- ErrAlreadyStarted
		return
	case !s.isHost():
		req.reply <- ErrNotHost
		return
	}

	code := s.cfg.Code
	s.goHelper(func(ctx context.Context) {
		lobby, err := s.svc.StartLobby(ctx, code)
		s.post(startDone{code: code, lobby: lobby, err: err, reply: req.reply})
	})
}

func (s *Sync) applyStart(msg startDone) {
	if msg.code != s.cfg.Code {
		msg.reply <- ErrStaleResponse
		return
	}
	if msg.err != nil {
		s.logger.Warn("start failed", zap.Error(msg.err))
		s.notify("Start failed: " + msg.err.Error())
		msg.reply <- fmt.Errorf("start game: %w", msg.err)
		return
	}

	// A poll issued before the start would report the lobby as forming.
	s.gen++
	s.applySnapshot(&msg.lobby, nil, nil)
	msg.reply <- nil
	s.startFetch(nil)
}

func (s *Sync) handleProcess(req processReq) {
	switch {
	case s.lobby == nil || s.lobby.Status != state.StatusStarted || s.phase == "":
		req.reply <- processResult{err: ErrNotStarted}
		return
	case !s.isHost():
		req.reply <- processResult{err: ErrNotHost}
		return
	case s.game != nil && s.game.IsDone:
		req.reply <- processResult{err: ErrGameOver}
		return
	}

	code, phase := s.cfg.Code, s.phase
	s.goHelper(func(ctx context.Context) {
		res, err := s.svc.ForceProcess(ctx, code)
		s.post(processDone{code: code, phase: phase, res: res, err: err, reply: req.reply})
	})
}

func (s *Sync) applyProcess(msg processDone) {
	if msg.code != s.cfg.Code {
		msg.reply <- processResult{err: ErrStaleResponse}
		return
	}
	if msg.err != nil {
		s.logger.Warn("process failed", zap.Error(msg.err))
		s.notify("Process failed: " + msg.err.Error())
		msg.reply <- processResult{err: fmt.Errorf("process phase: %w", msg.err)}
		return
	}

	res := msg.res
	if msg.phase == s.phase && res.NewPhase != "" && res.NewPhase != s.phase {
		s.gen++
		if s.game != nil {
			g := s.game.Clone()
			g.Phase = res.NewPhase
			g.IsDone = res.IsDone
			s.game = &g
		}
		s.adoptPhase(res.NewPhase, nil)
	}
	msg.reply <- processResult{res: res}
	s.startFetch(nil)
}
