package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
)

// CompletionJob asks a simulator worker to settle one checkout.
type CompletionJob struct {
	Reference string
}

type Worker struct {
	ID         int
	WorkerPool chan chan CompletionJob
	JobChannel chan CompletionJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan CompletionJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan CompletionJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(CompletionJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "reference", job.Reference)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type SimulatorConfig struct {
	Secret             string
	WebhookURL         string
	CompletionDelay    time.Duration
	DuplicateDelivery  bool
	MaxWorkers         int
	JobQueueSize       int
	WorkerPoolSize     int
	WebhookSendTimeout time.Duration
}

// Simulator is an in-process stand-in for the hosted checkout used in local
// runs. Every checkout completes after CompletionDelay and is announced by a
// signed webhook, delivered twice when DuplicateDelivery is set.
type Simulator struct {
	secret            string
	webhookURL        string
	completionDelay   time.Duration
	duplicateDelivery bool
	sendTimeout       time.Duration
	httpClient        *http.Client
	logger            *slog.Logger

	mu        sync.RWMutex
	checkouts map[string]*paymentgatewaytypes.Checkout

	jobQueue   chan CompletionJob
	workerPool chan chan CompletionJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewSimulator(config SimulatorConfig, logger *slog.Logger) *Simulator {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	workerPoolSize := config.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = maxWorkers
	}

	sendTimeout := config.WebhookSendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	s := &Simulator{
		secret:            config.Secret,
		webhookURL:        config.WebhookURL,
		completionDelay:   config.CompletionDelay,
		duplicateDelivery: config.DuplicateDelivery,
		sendTimeout:       sendTimeout,
		httpClient:        &http.Client{},
		logger:            logger,
		checkouts:         make(map[string]*paymentgatewaytypes.Checkout),

		maxWorkers: maxWorkers,
		jobQueue:   make(chan CompletionJob, jobQueueSize),
		workerPool: make(chan chan CompletionJob, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	s.startWorkerPool()

	return s
}

func (s *Simulator) startWorkerPool() {
	s.once.Do(func() {
		for i := 0; i < s.maxWorkers; i++ {
			worker := NewWorker(i, s.workerPool, s.logger)
			worker.Start(s.ctx, &s.wg, s.completeCheckout)
		}

		s.wg.Add(1)
		go s.dispatch()

		s.logger.Info("checkout simulator worker pool started",
			"max_workers", s.maxWorkers,
			"queue_size", cap(s.jobQueue))
	})
}

func (s *Simulator) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case job := <-s.jobQueue:
			select {
			case jobChannel := <-s.workerPool:
				select {
				case jobChannel <- job:
				case <-s.ctx.Done():
					s.logger.Info("dispatcher shutting down")
					return
				}
			case <-s.ctx.Done():
				s.logger.Info("dispatcher shutting down")
				return
			}
		case <-s.ctx.Done():
			s.logger.Info("dispatcher shutting down")
			return
		}
	}
}

func (s *Simulator) Shutdown() {
	s.logger.Info("shutting down checkout simulator")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("checkout simulator shutdown complete")
}

// CreateCheckout registers an open checkout. The redirect URL points straight
// back at the success URL, as if the seller had paid instantly.
func (s *Simulator) CreateCheckout(ctx context.Context, req *paymentgatewaytypes.CheckoutRequest) (*paymentgatewaytypes.Checkout, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	reference := "cs_sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	checkout := &paymentgatewaytypes.Checkout{
		Reference: reference,
		URL:       returnURL(req.SuccessURL, reference),
		Status:    paymentgatewaytypes.CheckoutStatusOpen,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Metadata:  copyMetadata(req.Metadata),
	}

	s.mu.Lock()
	s.checkouts[reference] = checkout
	s.mu.Unlock()

	select {
	case s.jobQueue <- CompletionJob{Reference: reference}:
		s.logger.Info("simulator: checkout opened",
			"reference", reference,
			"listing_id", req.Metadata[paymentgatewaytypes.MetadataListingID],
			"queue_length", len(s.jobQueue))
	default:
		s.mu.Lock()
		delete(s.checkouts, reference)
		s.mu.Unlock()
		s.logger.Warn("simulator: job queue full, rejecting checkout", "queue_capacity", cap(s.jobQueue))
		return nil, fmt.Errorf("checkout queue full, please try again later")
	}

	cp := *checkout
	return &cp, nil
}

func (s *Simulator) GetCheckout(ctx context.Context, reference string) (*paymentgatewaytypes.Checkout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checkout, ok := s.checkouts[reference]
	if !ok {
		return nil, ErrCheckoutNotFound
	}
	cp := *checkout
	cp.Metadata = copyMetadata(checkout.Metadata)
	return &cp, nil
}

func (s *Simulator) completeCheckout(job CompletionJob) {
	if s.completionDelay > 0 {
		select {
		case <-time.After(s.completionDelay):
		case <-s.ctx.Done():
			s.logger.Info("simulator: completion cancelled", "reference", job.Reference)
			return
		}
	}

	intent := "pi_sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	s.mu.Lock()
	checkout, ok := s.checkouts[job.Reference]
	if ok {
		checkout.Status = paymentgatewaytypes.CheckoutStatusComplete
		checkout.PaymentIntent = intent
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.logger.Info("simulator: checkout completed", "reference", job.Reference, "payment_intent", intent)

	event := paymentgatewaytypes.Event{
		ID:            "evt_sim_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Type:          paymentgatewaytypes.EventCheckoutCompleted,
		Reference:     job.Reference,
		PaymentIntent: intent,
		Created:       time.Now().Unix(),
	}

	deliveries := 1
	if s.duplicateDelivery {
		deliveries = 2
	}
	for i := 0; i < deliveries; i++ {
		s.sendWebhook(event)
	}
}

func (s *Simulator) sendWebhook(event paymentgatewaytypes.Event) {
	if s.webhookURL == "" {
		return
	}

	select {
	case <-s.ctx.Done():
		s.logger.Info("simulator: webhook cancelled", "reference", event.Reference)
		return
	default:
	}

	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("simulator: failed to marshal event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("simulator: failed to create webhook request", "error", err, "reference", event.Reference)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(s.secret, body, time.Now()))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("simulator: webhook delivery failed", "error", err, "reference", event.Reference)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		s.logger.Info("simulator: webhook delivered",
			"reference", event.Reference,
			"status_code", resp.StatusCode)
	} else {
		s.logger.Warn("simulator: webhook rejected",
			"reference", event.Reference,
			"status_code", resp.StatusCode)
	}
}

func returnURL(successURL, reference string) string {
	u, err := url.Parse(successURL)
	if err != nil || successURL == "" {
		return "/api/v1/payment/return?reference=" + url.QueryEscape(reference)
	}
	q := u.Query()
	q.Set("reference", reference)
	u.RawQuery = q.Encode()
	return u.String()
}

func copyMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
