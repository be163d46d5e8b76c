package worker

import (
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/rise-and-shine/docqueue/observability/logger"
)

// Observer receives the outcome of every processed message.
// Methods run on the goroutine that settled the message and must not block for long.
type Observer interface {
	// OnSucceeded is called after the message was acked.
	OnSucceeded(msg *docqueue.Message)

	// OnRetrying is called after a failed message was released for another try.
	OnRetrying(msg *docqueue.Message, err error)

	// OnFailed is called when a message exhausted its retry budget. It will be
	// forwarded to the dead-letter queue on its next claim.
	OnFailed(msg *docqueue.Message, err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Succeeded func(msg *docqueue.Message)
	Retrying  func(msg *docqueue.Message, err error)
	Failed    func(msg *docqueue.Message, err error)
}

func (f ObserverFuncs) OnSucceeded(msg *docqueue.Message) {
	if f.Succeeded != nil {
		f.Succeeded(msg)
	}
}

func (f ObserverFuncs) OnRetrying(msg *docqueue.Message, err error) {
	if f.Retrying != nil {
		f.Retrying(msg, err)
	}
}

func (f ObserverFuncs) OnFailed(msg *docqueue.Message, err error) {
	if f.Failed != nil {
		f.Failed(msg, err)
	}
}

type logObserver struct {
	logger logger.Logger
}

// NewLogObserver returns an Observer logging successes at info, retries at
// warn and terminal failures at error level.
func NewLogObserver(l logger.Logger) Observer {
	return &logObserver{logger: l}
}

func (o *logObserver) OnSucceeded(msg *docqueue.Message) {
	o.logger.With("message_id", msg.ID, "tries", msg.Tries).Info("[worker]: message processed")
}

func (o *logObserver) OnRetrying(msg *docqueue.Message, err error) {
	o.logger.With("message_id", msg.ID, "tries", msg.Tries).Warnx(err)
}

func (o *logObserver) OnFailed(msg *docqueue.Message, err error) {
	o.logger.With("message_id", msg.ID, "tries", msg.Tries).Errorx(err)
}
