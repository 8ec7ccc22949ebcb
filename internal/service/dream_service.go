package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"dream-journal/internal/domain"
	"dream-journal/internal/repository"
)

const defaultRemoteTimeout = 5 * time.Second

// ReconcileResult resume una subida de sueños locales a la nube.
type ReconcileResult struct {
	Local    int
	Remote   int
	Uploaded int
	Failed   int
}

// DreamService es la fuente de verdad del diario. El almacén local es autoritativo;
// la nube es un espejo de mejor esfuerzo para sesiones autenticadas.
type DreamService struct {
	logger        *zap.Logger
	local         repository.DreamRepository
	cloud         repository.CloudDreamRepository
	remoteTimeout time.Duration

	mu          sync.Mutex
	subscribers map[chan []domain.Dream]struct{}
}

// NewDreamService crea el servicio. cloud puede ser nil: entonces todo queda local.
func NewDreamService(logger *zap.Logger, local repository.DreamRepository, cloud repository.CloudDreamRepository, remoteTimeout time.Duration) *DreamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if remoteTimeout <= 0 {
		remoteTimeout = defaultRemoteTimeout
	}
	return &DreamService{
		logger:        logger,
		local:         local,
		cloud:         cloud,
		remoteTimeout: remoteTimeout,
		subscribers:   make(map[chan []domain.Dream]struct{}),
	}
}

func (s *DreamService) Add(ctx context.Context, session domain.Session, dream domain.Dream) (domain.Dream, error) {
	dream = dream.Normalize()
	if err := dream.Validate(); err != nil {
		return domain.Dream{}, err
	}
	dream.ID = 0
	id, err := s.local.Insert(ctx, dream)
	if err != nil {
		return domain.Dream{}, err
	}
	dream.ID = id
	s.publish(ctx)

	s.mirror(ctx, session, "add", dream.ID, func(rctx context.Context) error {
		_, err := s.cloud.Add(rctx, session.UserID, dream)
		return err
	})
	return dream, nil
}

func (s *DreamService) Update(ctx context.Context, session domain.Session, dream domain.Dream) (domain.Dream, error) {
	dream = dream.Normalize()
	if dream.ID <= 0 {
		return domain.Dream{}, repository.ErrDreamNotFound
	}
	if err := dream.Validate(); err != nil {
		return domain.Dream{}, err
	}
	if err := s.local.Update(ctx, dream); err != nil {
		return domain.Dream{}, err
	}
	s.publish(ctx)

	s.mirror(ctx, session, "update", dream.ID, func(rctx context.Context) error {
		return s.cloud.Update(rctx, session.UserID, dream)
	})
	return dream, nil
}

// Delete borra el sueño local y, si hay sesión, su copia remota. Un fallo remoto
// no revierte el borrado local.
func (s *DreamService) Delete(ctx context.Context, session domain.Session, id int64) error {
	if _, err := s.local.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.local.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx)

	s.mirror(ctx, session, "delete", id, func(rctx context.Context) error {
		return s.cloud.Delete(rctx, session.UserID, id)
	})
	return nil
}

// CloudEnabled indica si hay un almacén remoto configurado.
func (s *DreamService) CloudEnabled() bool {
	return s.cloud != nil
}

func (s *DreamService) Get(ctx context.Context, id int64) (domain.Dream, error) {
	return s.local.GetByID(ctx, id)
}

func (s *DreamService) List(ctx context.Context) ([]domain.Dream, error) {
	return s.local.List(ctx)
}

// OnAuthenticated sube a la nube cada sueño local cuyo id no existe todavía
// entre los documentos remotos del usuario.
func (s *DreamService) OnAuthenticated(ctx context.Context, user domain.User) (ReconcileResult, error) {
	var result ReconcileResult
	if s.cloud == nil || user.ID == "" {
		return result, nil
	}

	dreams, err := s.local.List(ctx)
	if err != nil {
		return result, err
	}
	result.Local = len(dreams)

	listCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	remote, err := s.cloud.List(listCtx, user.ID)
	cancel()
	if err != nil {
		s.logger.Warn("cloud list failed, skipping reconciliation", zap.Error(err), zap.String("user_id", user.ID))
		return result, nil
	}
	result.Remote = len(remote)

	remoteIDs := make(map[int64]struct{}, len(remote))
	for _, doc := range remote {
		remoteIDs[doc.Dream.ID] = struct{}{}
	}

	for _, dream := range dreams {
		if _, ok := remoteIDs[dream.ID]; ok {
			continue
		}
		addCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
		_, err := s.cloud.Add(addCtx, user.ID, dream)
		cancel()
		if err != nil {
			result.Failed++
			s.logger.Debug("cloud upload failed", zap.Error(err), zap.Int64("dream_id", dream.ID))
			continue
		}
		result.Uploaded++
	}
	return result, nil
}

// Subscribe entrega la lista actual y una nueva instantánea tras cada cambio local.
// Un suscriptor lento solo ve la instantánea más reciente. El canal se cierra con ctx.
func (s *DreamService) Subscribe(ctx context.Context) (<-chan []domain.Dream, error) {
	dreams, err := s.local.List(ctx)
	if err != nil {
		return nil, err
	}
	ch := make(chan []domain.Dream, 1)
	ch <- dreams

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

func (s *DreamService) publish(ctx context.Context) {
	s.mu.Lock()
	empty := len(s.subscribers) == 0
	s.mu.Unlock()
	if empty {
		return
	}

	dreams, err := s.local.List(ctx)
	if err != nil {
		s.logger.Warn("list dreams for subscribers failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		snapshot := make([]domain.Dream, len(dreams))
		copy(snapshot, dreams)
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func (s *DreamService) mirror(ctx context.Context, session domain.Session, op string, id int64, fn func(context.Context) error) {
	if s.cloud == nil || !session.Authenticated() {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	if err := fn(rctx); err != nil {
		level := s.logger.Debug
		if !errors.Is(err, context.DeadlineExceeded) {
			level = s.logger.Warn
		}
		level("cloud mirror failed", zap.String("op", op), zap.Int64("dream_id", id), zap.Error(err))
	}
}
