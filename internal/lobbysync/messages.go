package lobbysync

import (
	"github.com/DoyleJ11/dipclient/internal/builder"
	"github.com/DoyleJ11/dipclient/internal/state"
	"github.com/DoyleJ11/dipclient/internal/submission"
)

type Msg interface{ isSyncMsg() }

// tickReq asks for a poll. done, when set, is closed once a poll that
// started after the request has been applied or discarded.
type tickReq struct{ done chan struct{} }

func (tickReq) isSyncMsg() {}

type fetched struct {
	gen   uint64
	code  string
	lobby *state.LobbyState
	game  *state.GameSnapshot
	legal *state.LegalOrders
	err   error
}

func (fetched) isSyncMsg() {}

type buildReq struct {
	cmd    builder.Command
	decide Decide // when set, picks cmd on the loop
	reply  chan buildResult
}

func (buildReq) isSyncMsg() {}

type buildResult struct {
	reply BuildReply
	err   error
}

type editReq struct {
	remove string
	clear  bool
	reply  chan error
}

func (editReq) isSyncMsg() {}

type submitReq struct {
	wait  bool
	reply chan submitResult
}

func (submitReq) isSyncMsg() {}

type submitDone struct {
	code  string
	batch submission.Batch
	res   state.SubmitResult
	err   error
	reply chan submitResult
}

func (submitDone) isSyncMsg() {}

type submitResult struct {
	results []submission.Result
	err     error
}

type startReq struct{ reply chan error }

func (startReq) isSyncMsg() {}

type startDone struct {
	code  string
	lobby state.LobbyState
	err   error
	reply chan error
}

func (startDone) isSyncMsg() {}

type processReq struct{ reply chan processResult }

func (processReq) isSyncMsg() {}

type processDone struct {
	code  string
	phase string
	res   state.ProcessResult
	err   error
	reply chan processResult
}

func (processDone) isSyncMsg() {}

type processResult struct {
	res state.ProcessResult
	err error
}

type viewReq struct{ reply chan View }

func (viewReq) isSyncMsg() {}
