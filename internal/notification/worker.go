package notification

import (
	"context"
	"log/slog"
)

// task はバックグラウンドで実行される1件の配信処理。
type task struct {
	name string
	run  func(ctx context.Context)
}

// Worker は通知配信をリクエスト処理から切り離すバックグラウンドワーカー。
// ドメイン操作は永続化と応答を済ませた後にタスクを投入し、
// 配信の失敗が元の操作の結果に影響することはない（fire-and-forget）。
type Worker struct {
	tasks  chan task
	logger *slog.Logger
}

// NewWorker は指定キューサイズのWorkerを生成する。
// queueSizeが0以下の場合はデフォルト値64を使用する。
func NewWorker(queueSize int, logger *slog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		tasks:  make(chan task, queueSize),
		logger: logger,
	}
}

// Start はタスクループを開始する。コンテキストがキャンセルされるまで実行を継続する。
// goroutineとして起動することを想定している。
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("通知ワーカーを開始しました",
		slog.Int("queue_size", cap(w.tasks)),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("通知ワーカーを停止しました")
			return
		case t := <-w.tasks:
			t.run(ctx)
		}
	}
}

// Enqueue はタスクを非ブロッキングで投入する。
// キューが満杯の場合はタスクを破棄してログに残す。
// 投入元の操作を配信の都合で待たせてはならない。
func (w *Worker) Enqueue(name string, run func(ctx context.Context)) {
	select {
	case w.tasks <- task{name: name, run: run}:
	default:
		w.logger.Warn("通知キューが満杯のためタスクを破棄しました",
			slog.String("task", name),
		)
	}
}
