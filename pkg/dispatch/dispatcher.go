// Package dispatch routes classified commands to a canned reply or to the
// LLM responder, and lands every outcome in the reply mailbox. The mailbox
// write is the side channel that matters: the HTTP layer reports the relay
// attempt as accepted even when the responder fails.
package dispatch

import (
	"context"
	"errors"

	"github.com/golix/golix-bridge/pkg/intent"
	"github.com/golix/golix-bridge/pkg/logger"
	"github.com/golix/golix-bridge/pkg/mailbox"
)

// ErrEmptyCommand is returned for empty or whitespace-only commands.
// Validation happens before classification; empty text never reaches
// the classifier or the mailbox.
var ErrEmptyCommand = errors.New("empty command")

// apologyReply lands in the mailbox when the responder fails. The
// failure itself is logged server-side, not surfaced to the caller.
const apologyReply = "Désolé, je n'ai pas pu obtenir de réponse pour le moment."

type ResultKind string

const (
	KindFixed ResultKind = "fixed"
	KindAI    ResultKind = "ai"
	KindError ResultKind = "error"
)

type Result struct {
	Kind    ResultKind
	Message string
}

// Responder is the external completion capability. Implementations own
// their timeout; Dispatch imposes no additional one.
type Responder interface {
	Complete(ctx context.Context, text string) (string, error)
}

type Dispatcher struct {
	responder Responder
	outbox    *mailbox.Mailbox
}

func NewDispatcher(responder Responder, outbox *mailbox.Mailbox) *Dispatcher {
	return &Dispatcher{
		responder: responder,
		outbox:    outbox,
	}
}

// Dispatch classifies raw and writes the outcome to the mailbox. A fixed
// intent answers from the canned table without any external call. Freeform
// commands go to the responder with the original, un-normalized text; a
// responder failure degrades to the apology reply and KindError rather
// than an error, because the relay attempt itself succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, raw string) (Result, error) {
	if intent.Normalize(raw) == "" {
		return Result{}, ErrEmptyCommand
	}

	in := intent.Classify(raw)
	if reply, ok := intent.CannedReply(in); ok {
		d.outbox.Write(reply)
		logger.InfoCF("dispatch", "fixed intent matched", map[string]any{"intent": string(in)})
		return Result{Kind: KindFixed, Message: reply}, nil
	}

	if d.responder == nil {
		d.outbox.Write(apologyReply)
		logger.WarnC("dispatch", "no responder configured for freeform command")
		return Result{Kind: KindError, Message: apologyReply}, nil
	}

	reply, err := d.responder.Complete(ctx, raw)
	if err != nil {
		d.outbox.Write(apologyReply)
		logger.ErrorCF("dispatch", "responder failed", map[string]any{"error": err.Error()})
		return Result{Kind: KindError, Message: apologyReply}, nil
	}

	d.outbox.Write(reply)
	return Result{Kind: KindAI, Message: reply}, nil
}
