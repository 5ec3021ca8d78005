package operation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/metrics"
)

// maxFinishedJobs сколько завершённых заданий хранится для запросов статуса
const maxFinishedJobs = 256

// JobInfo снимок состояния задания
type JobInfo struct {
	ID        uuid.UUID `json:"id"`
	Operator  string    `json:"operator"`
	Label     string    `json:"label"`
	Status    string    `json:"status"`
	Affected  int       `json:"affected"`
	Remaining int64     `json:"remaining"`
	Slices    int       `json:"slices"`
	Submitted time.Time `json:"submitted"`
	Error     string    `json:"error,omitempty"`
}

// DoneFunc вызывается после завершения задания (успех, ошибка или отмена)
type DoneFunc func(p Progress, err error)

type job struct {
	id        uuid.UUID
	operator  string
	label     string
	op        Operation
	onDone    DoneFunc
	submitted time.Time
	last      Progress
	slices    int
	err       error
}

func (j *job) info() JobInfo {
	info := JobInfo{
		ID:        j.id,
		Operator:  j.operator,
		Label:     j.label,
		Status:    j.op.Status().String(),
		Affected:  j.last.Affected,
		Remaining: j.last.Remaining,
		Slices:    j.slices,
		Submitted: j.submitted,
	}
	if j.err != nil {
		info.Error = j.err.Error()
	}
	return info
}

// ErrOperatorBusy у оператора есть незавершённые задания в очереди
var ErrOperatorBusy = errors.New("у оператора есть незавершённые операции")

// Scheduler продвигает поставленные операции по кругу: за тик каждый оператор
// получает один срез размером SliceBudget для своего самого раннего задания.
// Задания одного оператора выполняются строго по очереди, поэтому их
// транзакции попадают в журнал в порядке постановки.
type Scheduler struct {
	mu          sync.Mutex
	tickMu      sync.Mutex
	queue       []*job
	finished    map[uuid.UUID]JobInfo
	finishOrder []uuid.UUID
	sliceBudget int
	metrics     *metrics.Metrics
	log         *logging.Logger
}

// NewScheduler создаёт планировщик. m может быть nil.
func NewScheduler(sliceBudget int, m *metrics.Metrics) *Scheduler {
	if sliceBudget <= 0 {
		sliceBudget = 10000
	}
	return &Scheduler{
		finished:    make(map[uuid.UUID]JobInfo),
		sliceBudget: sliceBudget,
		metrics:     m,
		log:         logging.Default(),
	}
}

// SetLogger задаёт логгер планировщика
func (s *Scheduler) SetLogger(l *logging.Logger) { s.log = l }

// SliceBudget размер одного среза
func (s *Scheduler) SliceBudget() int { return s.sliceBudget }

// Submit ставит операцию в очередь и возвращает идентификатор задания
func (s *Scheduler) Submit(operator, label string, op Operation, onDone DoneFunc) uuid.UUID {
	j := &job{
		id:        uuid.New(),
		operator:  operator,
		label:     label,
		op:        op,
		onDone:    onDone,
		submitted: time.Now(),
		last:      Progress{Remaining: -1},
	}
	s.mu.Lock()
	s.queue = append(s.queue, j)
	n := len(s.queue)
	s.mu.Unlock()

	s.metrics.SetQueued(n)
	s.log.Debug("Операция %s (%s) поставлена в очередь оператором %s", j.id, label, operator)
	return j.id
}

// Tick продвигает каждое задание на один срез и возвращает число продвинутых заданий.
// Ошибка контекста прерывает тик, задания остаются в очереди.
func (s *Scheduler) Tick(ctx context.Context) int {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	batch := make([]*job, 0, len(s.queue))
	seen := make(map[string]struct{}, len(s.queue))
	for _, j := range s.queue {
		if _, ok := seen[j.operator]; ok {
			continue
		}
		seen[j.operator] = struct{}{}
		batch = append(batch, j)
	}
	s.mu.Unlock()

	advanced := 0
	var done []*job
	for _, j := range batch {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		p, err := Step(ctx, j.op, s.sliceBudget)
		s.metrics.ObserveSlice(time.Since(start))
		advanced++
		interrupted := err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())

		s.mu.Lock()
		j.slices++
		if p.Visited > 0 || p.Done {
			j.last = p
		} else {
			j.last.Remaining = p.Remaining
		}
		finished := !interrupted && (err != nil || p.Done)
		if finished {
			j.err = err
		}
		s.mu.Unlock()

		if interrupted {
			break
		}
		if finished {
			done = append(done, j)
		}
	}
	if len(done) > 0 {
		s.finish(done)
	}
	return advanced
}

func (s *Scheduler) finish(done []*job) {
	s.mu.Lock()
	for _, j := range done {
		for i, q := range s.queue {
			if q == j {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				break
			}
		}
		s.finished[j.id] = j.info()
		s.finishOrder = append(s.finishOrder, j.id)
	}
	for len(s.finishOrder) > maxFinishedJobs {
		delete(s.finished, s.finishOrder[0])
		s.finishOrder = s.finishOrder[1:]
	}
	n := len(s.queue)
	s.mu.Unlock()

	s.metrics.SetQueued(n)
	for _, j := range done {
		status := j.op.Status().String()
		s.metrics.OperationFinished(status)
		if j.err != nil && !errors.Is(j.err, ErrCancelled) {
			s.log.Warn("Операция %s (%s) оператора %s завершилась ошибкой: %v", j.id, j.label, j.operator, j.err)
		} else {
			s.log.Debug("Операция %s (%s) завершена: %s, затронуто %d", j.id, j.label, status, j.last.Affected)
		}
		if j.onDone != nil {
			j.onDone(j.last, j.err)
		}
	}
}

// Cancel отменяет все задания оператора и возвращает их число.
// Задания покидают очередь на следующем тике.
func (s *Scheduler) Cancel(operator string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.queue {
		if j.operator == operator {
			j.op.Cancel()
			n++
		}
	}
	return n
}

// CancelJob отменяет задание по идентификатору
func (s *Scheduler) CancelJob(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.queue {
		if j.id == id {
			j.op.Cancel()
			return true
		}
	}
	return false
}

// Job возвращает состояние задания из очереди или из недавно завершённых
func (s *Scheduler) Job(id uuid.UUID) (JobInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.queue {
		if j.id == id {
			return j.info(), true
		}
	}
	info, ok := s.finished[id]
	return info, ok
}

// Busy сообщает, есть ли у оператора задания в очереди
func (s *Scheduler) Busy(operator string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.queue {
		if j.operator == operator {
			return true
		}
	}
	return false
}

// Pending число заданий в очереди
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Start крутит тики с заданным интервалом, пока не отменён контекст
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.log.Info("⏱️ Планировщик операций запущен: срез %d, интервал %s", s.sliceBudget, interval)
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			s.log.Info("⏱️ Планировщик операций остановлен, в очереди %d", s.Pending())
			return
		}
	}
}
