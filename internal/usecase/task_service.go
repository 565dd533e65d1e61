package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventPublisher получает события после коммита перехода
type EventPublisher interface {
	PublishTaskEvent(ctx context.Context, event *entity.TaskEvent) error
}

type WorkflowMode string

const (
	// pending -> waiting_approval -> assigned, с подтверждением пожилым
	WorkflowConfirmation WorkflowMode = "confirmation"
	// pending -> assigned сразу, без подтверждения
	WorkflowDirect WorkflowMode = "direct"
)

const DefaultRewardPoints = 50

type TaskServiceConfig struct {
	Workflow     WorkflowMode
	RewardPoints int
}

type TaskService struct {
	taskRepo         repository.ITaskRepository
	userRepo         repository.IUserRepository
	points           *PointsService
	notificationRepo repository.INotificationRepository
	historyRepo      repository.ITaskHistoryRepository
	tx               repository.Transactor
	events           EventPublisher
	cfg              TaskServiceConfig
}

func NewTaskService(
	taskRepo repository.ITaskRepository,
	userRepo repository.IUserRepository,
	pointsRepo repository.IPointsRepository,
	notificationRepo repository.INotificationRepository,
	historyRepo repository.ITaskHistoryRepository,
	tx repository.Transactor,
	events EventPublisher,
	cfg TaskServiceConfig,
) *TaskService {
	if cfg.Workflow == "" {
		cfg.Workflow = WorkflowConfirmation
	}
	if cfg.RewardPoints <= 0 {
		cfg.RewardPoints = DefaultRewardPoints
	}
	return &TaskService{
		taskRepo:         taskRepo,
		userRepo:         userRepo,
		points:           NewPointsService(pointsRepo),
		notificationRepo: notificationRepo,
		historyRepo:      historyRepo,
		tx:               tx,
		events:           events,
		cfg:              cfg,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, actor entity.Actor, req *entity.CreateTaskRequest) (*entity.Task, error) {
	if actor.Role != entity.RoleSenior {
		return nil, entity.ErrForbidden
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// 1. Проверяем что пользователь существует
	user, err := s.userRepo.GetById(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entity.ErrUserNotFound
	}

	// 2. Владелец всегда из контекста
	task := &entity.Task{
		ID:              uuid.New(),
		Type:            req.Type,
		Keywords:        req.Keywords,
		Location:        req.Location,
		RequestedBy:     user.ID,
		RequestedByName: user.Name,
		RequestedDate:   truncateDate(req.RequestedDate),
		Status:          entity.StatusPending,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.publish(ctx, entity.EventCreated, nil, task, actor)
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, actor entity.Actor, taskID uuid.UUID) (*entity.Task, error) {
	task, err := s.taskRepo.GetByTaskId(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, entity.ErrTaskNotFound
	}

	if !task.VisibleTo(actor) {
		return nil, entity.ErrForbidden
	}
	return task, nil
}

// Propose - помощник предлагает помощь по pending задаче
func (s *TaskService) Propose(ctx context.Context, taskID uuid.UUID, actor entity.Actor) (*entity.Task, error) {
	to := entity.StatusWaitingApproval
	if s.cfg.Workflow == WorkflowDirect {
		to = entity.StatusAssigned
	}

	plan := func(task *entity.Task) (entity.StatusUpdate, error) {
		if actor.Role != entity.RoleHelper {
			return entity.StatusUpdate{}, entity.ErrForbidden
		}
		if task.Status != entity.StatusPending {
			return entity.StatusUpdate{}, entity.ErrInvalidTransition
		}
		helper := actor.UserID
		return entity.StatusUpdate{From: entity.StatusPending, To: to, HelperAssigned: &helper}, nil
	}

	effects := func(ctx context.Context, before, after *entity.Task) error {
		helperName := s.displayName(ctx, actor)
		if s.cfg.Workflow == WorkflowDirect {
			return s.notify(ctx, after.RequestedBy, after, entity.NotificationTaskAccepted,
				fmt.Sprintf("%s a accepté de vous aider : %s.", helperName, describeTask(after)))
		}
		if err := s.notify(ctx, after.RequestedBy, after, entity.NotificationTaskProposed,
			fmt.Sprintf("%s propose de vous aider : %s. Merci de confirmer.", helperName, describeTask(after))); err != nil {
			return err
		}
		return s.notify(ctx, actor.UserID, after, entity.NotificationTaskAwaiting,
			fmt.Sprintf("Votre proposition pour %s attend la confirmation de %s.", describeTask(after), after.RequestedByName))
	}

	return s.transition(ctx, taskID, actor, entity.EventProposed, plan, effects)
}

// Confirm - пожилой подтверждает предложенного помощника
func (s *TaskService) Confirm(ctx context.Context, taskID uuid.UUID, actor entity.Actor) (*entity.Task, error) {
	plan := func(task *entity.Task) (entity.StatusUpdate, error) {
		if task.RequestedBy != actor.UserID {
			return entity.StatusUpdate{}, entity.ErrForbidden
		}
		if task.Status != entity.StatusWaitingApproval || task.HelperAssigned == nil {
			return entity.StatusUpdate{}, entity.ErrInvalidTransition
		}
		return entity.StatusUpdate{
			From:           entity.StatusWaitingApproval,
			To:             entity.StatusAssigned,
			HelperAssigned: task.HelperAssigned,
		}, nil
	}

	effects := func(ctx context.Context, before, after *entity.Task) error {
		return s.notify(ctx, *after.HelperAssigned, after, entity.NotificationTaskConfirmed,
			fmt.Sprintf("%s a confirmé votre aide : %s.", after.RequestedByName, describeTask(after)))
	}

	return s.transition(ctx, taskID, actor, entity.EventConfirmed, plan, effects)
}

// Decline - пожилой отклоняет помощника, задача снова pending
func (s *TaskService) Decline(ctx context.Context, taskID uuid.UUID, actor entity.Actor) (*entity.Task, error) {
	plan := func(task *entity.Task) (entity.StatusUpdate, error) {
		if task.RequestedBy != actor.UserID {
			return entity.StatusUpdate{}, entity.ErrForbidden
		}
		if task.Status != entity.StatusWaitingApproval || task.HelperAssigned == nil {
			return entity.StatusUpdate{}, entity.ErrInvalidTransition
		}
		return entity.StatusUpdate{From: entity.StatusWaitingApproval, To: entity.StatusPending}, nil
	}

	effects := func(ctx context.Context, before, after *entity.Task) error {
		return s.notify(ctx, *before.HelperAssigned, after, entity.NotificationTaskDeclined,
			fmt.Sprintf("%s a décliné votre proposition : %s.", after.RequestedByName, describeTask(after)))
	}

	return s.transition(ctx, taskID, actor, entity.EventDeclined, plan, effects)
}

// Cancel - отмена из любого нетерминального статуса, помощник снимается
func (s *TaskService) Cancel(ctx context.Context, taskID uuid.UUID, actor entity.Actor) (*entity.Task, error) {
	plan := func(task *entity.Task) (entity.StatusUpdate, error) {
		if task.RequestedBy != actor.UserID {
			return entity.StatusUpdate{}, entity.ErrForbidden
		}
		return entity.StatusUpdate{From: task.Status, To: entity.StatusCancelled}, nil
	}

	effects := func(ctx context.Context, before, after *entity.Task) error {
		if before.HelperAssigned == nil {
			return nil
		}
		return s.notify(ctx, *before.HelperAssigned, after, entity.NotificationTaskCancelled,
			fmt.Sprintf("%s a annulé la demande : %s.", after.RequestedByName, describeTask(after)))
	}

	return s.transition(ctx, taskID, actor, entity.EventCancelled, plan, effects)
}

// Complete - завершение помощником или пожилым; баллы только помощнику
func (s *TaskService) Complete(ctx context.Context, taskID uuid.UUID, actor entity.Actor) (*entity.Task, error) {
	plan := func(task *entity.Task) (entity.StatusUpdate, error) {
		if task.RequestedBy != actor.UserID && !task.IsHelper(actor.UserID) {
			return entity.StatusUpdate{}, entity.ErrForbidden
		}
		if task.Status != entity.StatusAssigned || task.HelperAssigned == nil {
			return entity.StatusUpdate{}, entity.ErrInvalidTransition
		}
		return entity.StatusUpdate{
			From:           entity.StatusAssigned,
			To:             entity.StatusCompleted,
			HelperAssigned: task.HelperAssigned,
		}, nil
	}

	effects := func(ctx context.Context, before, after *entity.Task) error {
		helperID := *after.HelperAssigned
		helperMsg := fmt.Sprintf("La demande est terminée : %s. Merci pour votre aide !", describeTask(after))

		if actor.UserID == helperID {
			total, err := s.points.AwardPoints(ctx, helperID, s.cfg.RewardPoints)
			if err != nil {
				return err
			}
			helperMsg = fmt.Sprintf("Merci pour votre aide ! Vous avez gagné %d points. Vous avez maintenant %d points.",
				s.cfg.RewardPoints, total)
		}

		if err := s.notify(ctx, after.RequestedBy, after, entity.NotificationTaskCompleted,
			fmt.Sprintf("Votre demande est terminée : %s.", describeTask(after))); err != nil {
			return err
		}
		return s.notify(ctx, helperID, after, entity.NotificationTaskCompleted, helperMsg)
	}

	return s.transition(ctx, taskID, actor, entity.EventCompleted, plan, effects)
}

// transition - общий шаг: чтение, проверки, условное обновление и побочные
// эффекты в одной транзакции, затем публикация события
func (s *TaskService) transition(
	ctx context.Context,
	taskID uuid.UUID,
	actor entity.Actor,
	kind entity.EventKind,
	plan func(task *entity.Task) (entity.StatusUpdate, error),
	effects func(ctx context.Context, before, after *entity.Task) error,
) (*entity.Task, error) {
	task, err := s.taskRepo.GetByTaskId(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, entity.ErrTaskNotFound
	}
	if task.Status.IsTerminal() {
		return nil, entity.ErrInvalidTransition
	}

	upd, err := plan(task)
	if err != nil {
		return nil, err
	}

	var updated *entity.Task
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var txErr error
		updated, txErr = s.taskRepo.UpdateStatus(ctx, taskID, upd)
		if txErr != nil {
			return txErr
		}
		return effects(ctx, task, updated)
	})
	if err != nil {
		log.Debug().Err(err).
			Str("task_id", taskID.String()).
			Str("kind", string(kind)).
			Msg("task transition rejected")
		return nil, err
	}

	log.Info().
		Str("task_id", taskID.String()).
		Str("from", string(task.Status)).
		Str("to", string(updated.Status)).
		Str("actor_id", actor.UserID.String()).
		Msg("task transition applied")

	s.publish(ctx, kind, task, updated, actor)
	return updated, nil
}

// ListFilter - параметры ListForUser
type ListFilter struct {
	Type entity.TaskType
	// Near - сортировка по расстоянию от точки
	Near *entity.Coordinates
}

// ListForUser: пожилому - все его задачи, помощнику - все pending
// и задачи, где он назначен. Новые первыми.
func (s *TaskService) ListForUser(ctx context.Context, actor entity.Actor, lf ListFilter) ([]entity.Task, error) {
	if lf.Type != "" && !lf.Type.Valid() {
		verr := &entity.ValidationError{}
		verr.Add("type", "unknown task type")
		return nil, verr
	}

	filter := entity.TaskFilter{Type: lf.Type}
	switch actor.Role {
	case entity.RoleSenior:
		filter.RequestedBy = &actor.UserID
	case entity.RoleHelper:
		filter.PendingOrHelper = &actor.UserID
	default:
		return nil, entity.ErrForbidden
	}

	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if lf.Near != nil {
		entity.SortByDistance(tasks, *lf.Near)
	}
	return tasks, nil
}

// History - сохраненные события задачи
func (s *TaskService) History(ctx context.Context, actor entity.Actor, taskID uuid.UUID) ([]entity.TaskHistory, error) {
	if _, err := s.GetTask(ctx, actor, taskID); err != nil {
		return nil, err
	}

	history, err := s.historyRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	return history, nil
}

func (s *TaskService) notify(ctx context.Context, userID uuid.UUID, task *entity.Task, kind entity.NotificationType, message string) error {
	taskID := task.ID
	n := &entity.Notification{
		ID:            uuid.New(),
		UserID:        userID,
		Message:       message,
		Type:          kind,
		RelatedTaskID: &taskID,
	}
	if err := s.notificationRepo.Append(ctx, n); err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

func (s *TaskService) displayName(ctx context.Context, actor entity.Actor) string {
	if actor.Name != "" {
		return actor.Name
	}
	user, err := s.userRepo.GetById(ctx, actor.UserID)
	if err != nil || user == nil {
		return "Un aidant"
	}
	return user.Name
}

// publish - best effort, ошибки только логируются
func (s *TaskService) publish(ctx context.Context, kind entity.EventKind, before, after *entity.Task, actor entity.Actor) {
	if s.events == nil {
		return
	}

	event := &entity.TaskEvent{
		TaskID:      after.ID,
		Kind:        kind,
		To:          after.Status,
		RequestedBy: after.RequestedBy,
		ActorID:     actor.UserID,
		HelperID:    after.HelperAssigned,
		Timestamp:   time.Now().UTC(),
	}
	if before != nil {
		event.From = before.Status
		if event.HelperID == nil {
			event.HelperID = before.HelperAssigned
		}
	}

	if err := s.events.PublishTaskEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Error().Err(err).
			Str("task_id", after.ID.String()).
			Str("kind", string(kind)).
			Msg("failed to publish task event")
	}
}

var taskTypeLabels = map[entity.TaskType]string{
	entity.TypeGroceries:     "courses",
	entity.TypeCooking:       "cuisine",
	entity.TypeGardening:     "jardinage",
	entity.TypeTechnology:    "technologie",
	entity.TypeAccompaniment: "accompagnement",
}

func describeTask(t *entity.Task) string {
	return fmt.Sprintf("%s à %s le %s", taskTypeLabels[t.Type], t.Location, t.RequestedDate.Format("02/01/2006"))
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
