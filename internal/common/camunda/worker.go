// internal/common/camunda/worker.go
package camunda

import (
	"sync"
	"time"

	"assistance-workflow/internal/common/config"
	"assistance-workflow/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every job worker in this module.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Pool owns the opened job workers so they can be closed together.
type Pool struct {
	client  zbc.Client
	logger  logger.Logger
	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewPool(client zbc.Client, log logger.Logger) *Pool {
	return &Pool{
		client:  client,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// Start opens a job worker for taskType unless it is disabled in wcfg.
func (p *Pool) Start(taskType string, wcfg config.WorkerConfig, handler JobHandler) {
	if !wcfg.Enabled {
		p.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	cmd := p.client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive)
	if wcfg.Timeout > 0 {
		cmd = cmd.Timeout(time.Duration(wcfg.Timeout) * time.Millisecond)
	}
	jw := cmd.Open()

	p.mu.Lock()
	p.workers[taskType] = jw
	p.mu.Unlock()

	p.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
}

// TaskTypes lists the started workers.
func (p *Pool) TaskTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.workers))
	for t := range p.workers {
		out = append(out, t)
	}
	return out
}

// Close stops polling and waits for in-flight jobs of every worker.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for taskType, jw := range p.workers {
		p.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		jw.Close()
		jw.AwaitClose()
	}
	p.workers = make(map[string]worker.JobWorker)
}
