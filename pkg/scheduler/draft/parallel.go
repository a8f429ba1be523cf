package draft

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/scheduler/random"
)

// Generator 并行生成多份草案，各草案之间没有共享的可变状态
type Generator struct {
	workers int
	logger  *logger.SchedulerLogger
}

// NewGenerator 创建草案生成器
func NewGenerator(workers int) *Generator {
	if workers <= 0 {
		workers = 4
	}
	return &Generator{
		workers: workers,
		logger:  logger.NewSchedulerLogger(),
	}
}

// WithLogger 设置日志器
func (g *Generator) WithLogger(l *logger.SchedulerLogger) *Generator {
	g.logger = l
	return g
}

// Batch 一批草案
type Batch struct {
	ID     uuid.UUID `json:"id"`
	Drafts []*Draft  `json:"drafts"`
}

type job struct {
	index int
	seed  uint32
}

// GenerateDrafts 生成 opts.Count 份草案。第 i 份使用 DeriveSeed(opts.Seed, i) 作为种子，
// 因此结果与并发调度无关。上下文取消只在草案之间生效，已完成的草案随错误一起返回。
func (g *Generator) GenerateDrafts(ctx context.Context, in *Input, opts Options) (*Batch, error) {
	count := opts.Count
	if count <= 0 {
		count = 1
	}
	batch := &Batch{ID: uuid.New()}
	start := time.Now()
	if g.logger != nil {
		g.logger.StartBatch(batch.ID.String(), count, len(in.Nurses), len(in.Horizon))
	}

	jobChan := make(chan job, count)
	resultChan := make(chan *Draft, count)

	// 启动工作协程
	workers := min(g.workers, count)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				d := Generate(in, opts, random.NewLCG(j.seed), g.logger)
				d.Index = j.index
				d.Seed = j.seed
				if g.logger != nil {
					g.logger.DraftComplete(d.ID.String(), d.Seed, d.Duration, d.Score)
				}
				resultChan <- d
			}
		}()
	}

	// 发送任务
	for i := 0; i < count; i++ {
		jobChan <- job{index: i, seed: random.DeriveSeed(opts.Seed, i)}
	}
	close(jobChan)

	// 等待完成
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// 收集结果，按序号排列
	drafts := make([]*Draft, count)
	completed := 0
	for d := range resultChan {
		drafts[d.Index] = d
		completed++
	}
	for _, d := range drafts {
		if d != nil {
			batch.Drafts = append(batch.Drafts, d)
		}
	}

	if completed < count {
		return batch, errors.GenerationCancelled(completed, count, ctx.Err())
	}
	if g.logger != nil {
		g.logger.BatchComplete(batch.ID.String(), completed, time.Since(start))
	}
	return batch, nil
}
