package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/audacd/internal/observability"
	"github.com/danmuck/audacd/internal/protocol"
)

const (
	// DefaultAttempts is the total exchange budget for one logical command.
	DefaultAttempts = 3
	// DefaultRetryStep grows linearly: the sleep before attempt N+1 is
	// RetryStep multiplied by N.
	DefaultRetryStep = 150 * time.Millisecond
)

// Dispatcher issues one logical command per exchange with bounded retry.
// It is the single entry point drivers use to reach a device. Transport and
// protocol failures are transient and retried; after the final attempt the
// last error is returned unchanged.
type Dispatcher struct {
	Endpoint  Endpoint
	Address   string
	SourceID  string
	Timeout   time.Duration
	Attempts  int
	RetryStep time.Duration

	logger zerolog.Logger
}

// NewDispatcher builds a dispatcher for one device. The source id is
// sanitized here so every frame carries a legal tag.
func NewDispatcher(ep Endpoint, address, sourceID string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		Endpoint:  ep,
		Address:   address,
		SourceID:  protocol.SanitizeSourceID(sourceID),
		Timeout:   DefaultTimeout,
		Attempts:  DefaultAttempts,
		RetryStep: DefaultRetryStep,
		logger:    logger.With().Str("device_addr", address).Str("endpoint", ep.Addr()).Logger(),
	}
}

// Send issues command with the retry budget and returns the accepted reply
// frame. A non-empty accept list restricts which reply command tags count as
// the answer; everything else on the wire is an unsolicited push.
func (d *Dispatcher) Send(ctx context.Context, command, argument string, accept []string) (protocol.Frame, error) {
	attempts := d.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	step := d.RetryStep
	if step <= 0 {
		step = DefaultRetryStep
	}

	var acceptSet map[string]struct{}
	if len(accept) > 0 {
		acceptSet = make(map[string]struct{}, len(accept))
		for _, tag := range accept {
			acceptSet[tag] = struct{}{}
		}
	}

	payload := protocol.Encode(d.Address, d.SourceID, command, argument)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		frame, err := Exchange(ctx, d.Endpoint, command, payload, d.Timeout, acceptSet)
		if err == nil {
			observability.RecordExchange(command, "ok")
			return frame, nil
		}
		lastErr = err
		d.logger.Warn().
			Str("command", command).
			Int("attempt", attempt).
			Err(err).
			Msg("exchange_failed")
		if attempt == attempts {
			break
		}
		observability.RecordExchangeRetry()
		if err := sleepRetry(ctx, step*time.Duration(attempt)); err != nil {
			return protocol.Frame{}, err
		}
	}
	observability.RecordExchange(command, "error")
	return protocol.Frame{}, lastErr
}

// SendExpect issues command and returns the reply argument. The accept
// filter already restricts replies to replyCommand; the final check guards
// against a filter race.
func (d *Dispatcher) SendExpect(ctx context.Context, command, argument, replyCommand string) (string, error) {
	frame, err := d.Send(ctx, command, argument, []string{replyCommand})
	if err != nil {
		return "", err
	}
	if frame.Command != replyCommand {
		return "", fmt.Errorf("%w: got %q for %q, expected %q", ErrUnexpectedReply, frame.Command, command, replyCommand)
	}
	return frame.Argument, nil
}

// SendRaw issues one command with no reply-tag filter and validates only
// that the reply echoes the command. Operator diagnostics escape hatch.
func (d *Dispatcher) SendRaw(ctx context.Context, command, argument string) (string, error) {
	frame, err := d.Send(ctx, command, argument, nil)
	if err != nil {
		return "", err
	}
	if frame.Command != command {
		return "", fmt.Errorf("%w: got %q for raw %q", ErrUnexpectedReply, frame.Command, command)
	}
	return frame.Argument, nil
}

func sleepRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
