// Package chat binds user input to the conversation log, the
// personalization engine and the provider gateway. One Service drives one
// session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhiramiramadas/minibot/pkg/gateway"
	"github.com/abhiramiramadas/minibot/pkg/history"
	"github.com/abhiramiramadas/minibot/pkg/keys"
	"github.com/abhiramiramadas/minibot/pkg/personalize"
	"github.com/abhiramiramadas/minibot/pkg/session"
)

// ErrBusy is returned when a send arrives while another provider call is
// still in flight. Requests are rejected rather than queued; the caller
// retries manually.
var ErrBusy = errors.New("chat: another request is in flight")

// ErrEmptyMessage is returned for a send with neither text nor attachment.
var ErrEmptyMessage = errors.New("chat: empty message")

// MissingKeyError is a configuration error: the operation needs an API key
// the user has not supplied. No provider call is made.
type MissingKeyError struct {
	Kind keys.Kind
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("chat: %s API key is not set", e.Kind)
}

// Service is the chat orchestrator.
type Service struct {
	log     *history.Log
	session *session.Manager
	engine  *personalize.Engine
	keys    *keys.Store
	gw      *gateway.Client
	logger  *zap.Logger

	systemInstruction string
	inFlight          atomic.Bool
}

// NewService wires the orchestrator. All collaborators are required except
// logger.
func NewService(log *history.Log, sess *session.Manager, engine *personalize.Engine, ks *keys.Store, gw *gateway.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		log:     log,
		session: sess,
		engine:  engine,
		keys:    ks,
		gw:      gw,
		logger:  logger,
	}
}

// SystemInstruction returns the active personality instruction.
func (s *Service) SystemInstruction() string {
	return s.systemInstruction
}

// SetSystemInstruction switches the AI personality. The conversation
// history is cleared whenever the instruction changes, including a change
// back to the default (empty) instruction.
func (s *Service) SetSystemInstruction(instruction string) error {
	s.systemInstruction = instruction
	return s.log.Clear()
}

// Reset clears the conversation without touching the personality or the
// session data.
func (s *Service) Reset() error {
	return s.log.Clear()
}

// Send runs one text exchange: append the user turn, call the provider
// with the personalized payload, append the reply, persist, analyze.
// A second send while one is in flight is rejected with ErrBusy.
func (s *Service) Send(ctx context.Context, message string) (string, error) {
	if message == "" {
		return "", ErrEmptyMessage
	}
	return s.exchange(ctx, history.Turn{
		Role:  history.RoleUser,
		Parts: []history.Part{history.TextPart(message)},
	})
}

// SendWithAttachment runs one exchange carrying an inline attachment next
// to the optional message text.
func (s *Service) SendWithAttachment(ctx context.Context, message, mimeType, base64Data string) (string, error) {
	if message == "" && base64Data == "" {
		return "", ErrEmptyMessage
	}

	var parts []history.Part
	if message != "" {
		parts = append(parts, history.TextPart(message))
	}
	if base64Data != "" {
		parts = append(parts, history.InlineDataPart(mimeType, base64Data))
	}
	return s.exchange(ctx, history.Turn{Role: history.RoleUser, Parts: parts})
}

func (s *Service) exchange(ctx context.Context, userTurn history.Turn) (string, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer s.inFlight.Store(false)

	apiKey, err := s.keys.Get(keys.KindGemini)
	if err != nil {
		if errors.Is(err, keys.ErrNotSet) {
			return "", &MissingKeyError{Kind: keys.KindGemini}
		}
		return "", err
	}

	s.log.Append(userTurn)
	payload := s.log.BuildRequestPayload(s.systemInstruction, s.engine.PersonalizedContext())

	reply, err := s.gw.SendChat(ctx, payload, apiKey)
	if err != nil {
		// The user turn stays in the log either way; persist what we have.
		if perr := s.log.Persist(); perr != nil {
			s.logger.Warn("failed to persist history after send error", zap.Error(perr))
		}
		return "", err
	}

	s.log.Append(history.Turn{
		Role:  history.RoleModel,
		Parts: []history.Part{history.TextPart(reply)},
	})
	if err := s.log.Persist(); err != nil {
		return "", err
	}

	if err := s.engine.Analyze(s.log.Turns()); err != nil {
		// Analysis failure never fails the exchange.
		s.logger.Warn("conversation analysis failed", zap.Error(err))
	}

	return reply, nil
}

// GenerateImage renders prompt through the image provider and returns the
// hosted URL. Generated images are displayed, not added to the
// conversation history.
func (s *Service) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer s.inFlight.Store(false)

	apiKey, err := s.keys.Get(keys.KindHuggingFace)
	if err != nil {
		if errors.Is(err, keys.ErrNotSet) {
			return "", &MissingKeyError{Kind: keys.KindHuggingFace}
		}
		return "", err
	}
	return s.gw.GenerateImage(ctx, prompt, apiKey)
}

// GenerateVideo renders prompt through the video provider, polling the
// operation until it completes or the budget runs out.
func (s *Service) GenerateVideo(ctx context.Context, prompt string) (string, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer s.inFlight.Store(false)

	apiKey, err := s.keys.Get(keys.KindGemini)
	if err != nil {
		if errors.Is(err, keys.ErrNotSet) {
			return "", &MissingKeyError{Kind: keys.KindGemini}
		}
		return "", err
	}
	return s.gw.GenerateVideo(ctx, prompt, apiKey)
}

// ShareFile uploads an attachment to the image host and records the hosted
// URL in the history so it can be re-displayed after reload. The magicapi
// key store falls back to a built-in default, so this works without setup.
func (s *Service) ShareFile(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	apiKey, err := s.keys.Get(keys.KindMagicAPI)
	if err != nil {
		return "", err
	}

	url, err := s.gw.UploadFile(ctx, filename, data, apiKey)
	if err != nil {
		return "", err
	}

	s.log.Append(history.Turn{
		Role:  history.RoleUser,
		Parts: []history.Part{history.FileRefPart(url, mimeType)},
	})
	if err := s.log.Persist(); err != nil {
		return "", err
	}
	return url, nil
}

// MarkImportant flags the current conversation with a generated id. When
// no tags are given they are suggested from the summary text.
func (s *Service) MarkImportant(summary string, tags []string) (string, error) {
	if len(tags) == 0 {
		tags = s.engine.SuggestTags(summary, 5)
	}
	id := uuid.New().String()
	if err := s.session.MarkImportant(id, summary, tags); err != nil {
		return "", err
	}
	return id, nil
}
