package gotd

import (
	"context"

	"meeplepoint-rewards/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// rotateCron fires at midnight UTC; the service itself derives the
// calendar day from the configured rewards timezone.
const rotateCron = "0 0 * * *"

var TaskModule = fx.Module("gotd.task",
	fx.Provide(NewTask),
	fx.Invoke(registerTaskHandlers, registerPeriodicTasks),
)

type Task struct {
	svc *Service
}

func NewTask(svc *Service) *Task {
	return &Task{svc: svc}
}

func (t *Task) HandleRotateTask(ctx context.Context, task *asynq.Task) error {
	zap.L().Info("▶️ start rotation task", zap.String("task_type", task.Type()))

	if err := t.svc.Rotate(ctx); err != nil {
		zap.L().Error("rotation task failed", zap.Error(err))
		return err
	}
	return nil
}

func registerTaskHandlers(mux *asynq.ServeMux, task *Task) {
	mux.HandleFunc(taskname.GotdRotate, task.HandleRotateTask)
}

func registerPeriodicTasks(scheduler *asynq.Scheduler) error {
	_, err := scheduler.Register(rotateCron, asynq.NewTask(taskname.GotdRotate, nil), asynq.Queue("rewards"))
	return err
}
