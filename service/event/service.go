package event

import (
	"context"
	"reflect"
	"sync"

	"github.com/jwcompdev/termkit/service/messaging/memory"
	"go.uber.org/zap"
)

// Service owns one publisher (and at most one listener) per payload type.
type Service struct {
	typedPublishers map[reflect.Type]any
	typedListeners  map[reflect.Type]stopper
	queueConfig     memory.Config
	logger          *zap.Logger
	mux             sync.RWMutex
}

type stopper interface{ Stop() }

type Option func(s *Service)

// WithQueueConfig sets the in-memory queue configuration used per type.
func WithQueueConfig(config memory.Config) Option {
	return func(s *Service) { s.queueConfig = config }
}

// WithLogger sets the logger used by listeners.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(opts ...Option) *Service {
	ret := &Service{
		typedPublishers: make(map[reflect.Type]any),
		typedListeners:  make(map[reflect.Type]stopper),
		queueConfig:     memory.DefaultConfig(),
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// PublisherOf returns the publisher for the provided type, creating it on first use.
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T])
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.typedPublishers[key]; ok {
		return ret.(*Publisher[T])
	}
	publisher := NewPublisher[T](memory.NewQueue[Event[T]](s.queueConfig))
	s.typedPublishers[key] = publisher
	return publisher
}

// Publish publishes data of type T under namespace.
func Publish[T any](ctx context.Context, s *Service, namespace, sessionID string, data T) error {
	return PublisherOf[T](s).Publish(ctx, NewEvent(namespace, sessionID, data))
}

// SetListenerOf replaces the listener for type T. A nil handler removes it.
func SetListenerOf[T any](s *Service, handler func(*Event[T])) {
	key := keyOf[T]()
	s.mux.Lock()
	previous, ok := s.typedListeners[key]
	delete(s.typedListeners, key)
	s.mux.Unlock()
	if ok {
		previous.Stop()
	}
	if handler == nil {
		return
	}
	listener := NewListener[T](PublisherOf[T](s), handler, s.logger)
	s.mux.Lock()
	s.typedListeners[key] = listener
	s.mux.Unlock()
	listener.Start()
}

// Close stops every listener and closes the underlying queues.
func (s *Service) Close() error {
	s.mux.Lock()
	listeners := s.typedListeners
	publishers := s.typedPublishers
	s.typedListeners = make(map[reflect.Type]stopper)
	s.typedPublishers = make(map[reflect.Type]any)
	s.mux.Unlock()
	for _, listener := range listeners {
		listener.Stop()
	}
	for _, publisher := range publishers {
		if closer, ok := publisher.(interface{ close() error }); ok {
			_ = closer.close()
		}
	}
	return nil
}
