package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"practice/internal/auth"
	"practice/internal/metrics"
	"practice/internal/model"
	"practice/internal/notify"
	"practice/internal/repository"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type QuestionInput struct {
	ID       string             `json:"id"`
	Type     model.QuestionType `json:"type" binding:"required,question_type"`
	Text     string             `json:"text" binding:"required,max=1000"`
	Required bool               `json:"required"`
	Options  []string           `json:"options"`
	ScaleMin int                `json:"scale_min"`
	ScaleMax int                `json:"scale_max"`
}

type CreateWorkbookRequest struct {
	Title       string          `json:"title" binding:"required,max=255"`
	Description string          `json:"description" binding:"max=2000"`
	Content     string          `json:"content"`
	Questions   []QuestionInput `json:"questions" binding:"omitempty,dive"`
	AssignedTo  *string         `json:"assigned_to"`
}

// UpdateWorkbookRequest edits only the fields that are present.
type UpdateWorkbookRequest struct {
	Title       *string          `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
	Content     *string          `json:"content"`
	Questions   *[]QuestionInput `json:"questions" binding:"omitempty,dive"`
}

type AssignWorkbookRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AnswerRequest is used for both saving progress and submitting. A nil
// UserResponse leaves the stored free-text response untouched.
type AnswerRequest struct {
	UserResponse *string                `json:"user_response"`
	Answers      map[string]AnswerValue `json:"answers"`
}

type ReviewWorkbookRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

type ListWorkbooksQuery struct {
	Status     string
	AssignedTo string
	Page       int
	Limit      int
}

// AnswerValue accepts a string, a number or a list of strings.
type AnswerValue []string

func (v *AnswerValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = nil
		return nil
	case len(b) > 0 && b[0] == '[':
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*v = list
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = AnswerValue{s}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("answer must be a string, number or list of strings")
		}
		*v = AnswerValue{n.String()}
		return nil
	}
}

type WorkbookService interface {
	Create(ctx context.Context, actor *auth.Principal, req CreateWorkbookRequest) (*model.Workbook, error)
	Update(ctx context.Context, actor *auth.Principal, id string, req UpdateWorkbookRequest) (*model.Workbook, error)
	Assign(ctx context.Context, actor *auth.Principal, id, userID string) (*model.Workbook, error)
	List(ctx context.Context, actor *auth.Principal, q ListWorkbooksQuery) ([]model.Workbook, int64, error)
	ListMine(ctx context.Context, actor *auth.Principal, page, limit int) ([]model.Workbook, int64, error)
	Get(ctx context.Context, actor *auth.Principal, id string) (*model.Workbook, error)
	SaveProgress(ctx context.Context, actor *auth.Principal, id string, req AnswerRequest) (*model.Workbook, error)
	Submit(ctx context.Context, actor *auth.Principal, id string, req AnswerRequest) (*model.Workbook, error)
	Review(ctx context.Context, actor *auth.Principal, id, feedback string) (*model.Workbook, error)
	Delete(ctx context.Context, actor *auth.Principal, id string) error
}

type workbookService struct {
	repo      repository.WorkbookRepository
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	events    notify.Publisher
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewWorkbookService(repos repository.Repositories, events notify.Publisher, clock clockwork.Clock, log *zap.Logger) WorkbookService {
	if events == nil {
		events = notify.Discard{}
	}
	return &workbookService{
		repo:      repos.Workbooks,
		userRepo:  repos.Users,
		auditRepo: repos.Audit,
		txManager: repos.Tx,
		events:    events,
		clock:     clock,
		log:       log,
	}
}

func (s *workbookService) Create(ctx context.Context, actor *auth.Principal, req CreateWorkbookRequest) (*model.Workbook, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	wb := &model.Workbook{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Content:     req.Content,
		Questions:   questions,
		Status:      model.WorkbookUnassigned,
	}
	if req.AssignedTo != nil && *req.AssignedTo != "" {
		if err := s.requireUser(ctx, *req.AssignedTo); err != nil {
			return nil, err
		}
		assignee := *req.AssignedTo
		now := s.clock.Now().UTC()
		wb.AssignedTo = &assignee
		wb.Status = model.WorkbookAssigned
		wb.AssignedAt = &now
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, wb); err != nil {
			return err
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateWorkbook, wb.ID, wb.Title, map[string]any{
			"questions":   len(wb.Questions),
			"assigned_to": wb.AssignedTo,
		})
	})
	if err != nil {
		return nil, err
	}
	return wb, nil
}

func (s *workbookService) Update(ctx context.Context, actor *auth.Principal, id string, req UpdateWorkbookRequest) (*model.Workbook, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	var questions []model.Question
	if req.Questions != nil {
		var err error
		if questions, err = buildQuestions(*req.Questions); err != nil {
			return nil, err
		}
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, invalid("title", "must not be empty")
	}

	return s.mutate(ctx, actor, id, model.ActionUpdateWorkbook, nil, func(wb *model.Workbook) error {
		if req.Title != nil {
			wb.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			wb.Description = strings.TrimSpace(*req.Description)
		}
		if req.Content != nil {
			wb.Content = *req.Content
		}
		if req.Questions != nil {
			if wb.Status != model.WorkbookUnassigned && wb.Status != model.WorkbookAssigned {
				return conflict("questions cannot change once the workbook is %s", wb.Status)
			}
			wb.Questions = questions
		}
		return nil
	})
}

// Assign sets the assignee and the assigned status in a single update.
func (s *workbookService) Assign(ctx context.Context, actor *auth.Principal, id, userID string) (*model.Workbook, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("user_id", "is required")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	details := map[string]any{"user_id": userID}
	return s.mutate(ctx, actor, id, model.ActionAssignWorkbook, details, func(wb *model.Workbook) error {
		if wb.Status != model.WorkbookUnassigned && wb.Status != model.WorkbookAssigned {
			return conflict("workbook is %s and can no longer be reassigned", wb.Status)
		}
		now := s.clock.Now().UTC()
		assignee := userID
		wb.AssignedTo = &assignee
		wb.Status = model.WorkbookAssigned
		wb.AssignedAt = &now
		return nil
	})
}

func (s *workbookService) List(ctx context.Context, actor *auth.Principal, q ListWorkbooksQuery) ([]model.Workbook, int64, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	status := model.WorkbookStatus(q.Status)
	if status != "" && !status.Valid() {
		return nil, 0, invalid("status", "unknown workbook status %q", q.Status)
	}
	filter := repository.WorkbookFilter{Status: status, Page: q.Page, Limit: q.Limit}
	if q.AssignedTo != "" {
		assignee := q.AssignedTo
		filter.AssignedTo = &assignee
	}
	return s.repo.List(ctx, filter)
}

func (s *workbookService) ListMine(ctx context.Context, actor *auth.Principal, page, limit int) ([]model.Workbook, int64, error) {
	if err := auth.Authorize(actor, model.RoleUser); err != nil {
		return nil, 0, err
	}
	assignee := actor.ID
	return s.repo.List(ctx, repository.WorkbookFilter{AssignedTo: &assignee, Page: page, Limit: limit})
}

func (s *workbookService) Get(ctx context.Context, actor *auth.Principal, id string) (*model.Workbook, error) {
	if err := auth.Authorize(actor, model.RoleUser); err != nil {
		return nil, err
	}
	wb, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "workbook", id)
	}
	if err := auth.CanAccess(actor, wb.AssignedTo); err != nil {
		return nil, err
	}
	return wb, nil
}

// SaveProgress stores the caller's full draft. The first save moves an
// assigned workbook to in_progress.
func (s *workbookService) SaveProgress(ctx context.Context, actor *auth.Principal, id string, req AnswerRequest) (*model.Workbook, error) {
	if err := auth.Authorize(actor, model.RoleUser); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, "", nil, func(wb *model.Workbook) error {
		if err := auth.CanAccess(actor, wb.AssignedTo); err != nil {
			return err
		}
		if !wb.Status.Editable() {
			return conflict("workbook is %s and can no longer be edited", wb.Status)
		}
		if err := applyAnswers(wb, req); err != nil {
			return err
		}
		if wb.Status == model.WorkbookAssigned {
			wb.Status = model.WorkbookInProgress
		}
		return nil
	})
}

// Submit rejects an empty submission before any lookup, then requires every
// required question to be answered.
func (s *workbookService) Submit(ctx context.Context, actor *auth.Principal, id string, req AnswerRequest) (*model.Workbook, error) {
	if isEmptySubmission(req) {
		return nil, invalid("user_response", "submission must not be empty")
	}
	if err := auth.Authorize(actor, model.RoleUser); err != nil {
		return nil, err
	}

	wb, err := s.mutate(ctx, actor, id, model.ActionSubmitWorkbook, nil, func(wb *model.Workbook) error {
		if err := auth.CanAccess(actor, wb.AssignedTo); err != nil {
			return err
		}
		if !wb.Status.Editable() {
			return conflict("workbook is %s and cannot be submitted", wb.Status)
		}
		if err := applyAnswers(wb, req); err != nil {
			return err
		}
		for _, q := range wb.Questions {
			if q.Required && len(q.Answer) == 0 {
				return invalid("answers", "question %q is required", q.ID)
			}
		}
		now := s.clock.Now().UTC()
		wb.Status = model.WorkbookSubmitted
		wb.SubmittedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	e := notify.Event{Type: notify.EventWorkbookSubmitted, EntityID: wb.ID, OccurredAt: s.clock.Now().UTC(), Payload: map[string]any{
		"title":       wb.Title,
		"assigned_to": wb.AssignedTo,
	}}
	if err := s.events.Publish(ctx, e); err != nil {
		metrics.DeliveryFailures.WithLabelValues("events").Inc()
		s.log.Warn("event publish failed", zap.String("event", e.Type), zap.String("entity_id", wb.ID), zap.Error(err))
	}
	return wb, nil
}

func (s *workbookService) Review(ctx context.Context, actor *auth.Principal, id, feedback string) (*model.Workbook, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, invalid("feedback", "is required")
	}
	return s.mutate(ctx, actor, id, model.ActionReviewWorkbook, nil, func(wb *model.Workbook) error {
		if wb.Status != model.WorkbookSubmitted {
			return conflict("only submitted workbooks can be reviewed, this one is %s", wb.Status)
		}
		now := s.clock.Now().UTC()
		wb.AdminFeedback = feedback
		wb.Status = model.WorkbookReviewed
		wb.ReviewedAt = &now
		return nil
	})
}

func (s *workbookService) Delete(ctx context.Context, actor *auth.Principal, id string) error {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return notFound(err, "workbook", id)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeleteWorkbook, id, "", nil)
	})
}

// mutate runs one repository update and, when action is set, its audit entry.
func (s *workbookService) mutate(ctx context.Context, actor *auth.Principal, id, action string, details any, fn func(*model.Workbook) error) (*model.Workbook, error) {
	var updated *model.Workbook
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.repo.Update(txCtx, id, fn)
		if err != nil {
			return notFound(err, "workbook", id)
		}
		if action == "" {
			return nil
		}
		d := details
		if d == nil {
			d = map[string]any{"status": updated.Status}
		}
		return recordAudit(txCtx, s.auditRepo, actor, action, id, updated.Title, d)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *workbookService) requireUser(ctx context.Context, userID string) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return notFound(err, "user", userID)
	}
	return nil
}

func isEmptySubmission(req AnswerRequest) bool {
	if req.UserResponse != nil && strings.TrimSpace(*req.UserResponse) != "" {
		return false
	}
	for _, v := range req.Answers {
		for _, a := range v {
			if strings.TrimSpace(a) != "" {
				return false
			}
		}
	}
	return true
}

// applyAnswers writes req onto wb after checking every answer against its question.
func applyAnswers(wb *model.Workbook, req AnswerRequest) error {
	index := make(map[string]int, len(wb.Questions))
	for i, q := range wb.Questions {
		index[q.ID] = i
	}
	for qid, value := range req.Answers {
		i, ok := index[qid]
		if !ok {
			return invalid("answers", "unknown question %q", qid)
		}
		answer, err := checkAnswer(wb.Questions[i], value)
		if err != nil {
			return err
		}
		wb.Questions[i].Answer = answer
	}
	if req.UserResponse != nil {
		wb.UserResponse = *req.UserResponse
	}
	return nil
}

func checkAnswer(q model.Question, value AnswerValue) ([]string, error) {
	var values []string
	for _, v := range value {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	if q.Type != model.QuestionCheckbox && len(values) > 1 {
		return nil, invalid("answers", "question %q takes a single answer", q.ID)
	}
	switch q.Type {
	case model.QuestionMultipleChoice, model.QuestionDropdown, model.QuestionCheckbox:
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			if !slices.Contains(q.Options, v) {
				return nil, invalid("answers", "%q is not an option of question %q", v, q.ID)
			}
			if seen[v] {
				return nil, invalid("answers", "%q is repeated in question %q", v, q.ID)
			}
			seen[v] = true
		}
	case model.QuestionScale:
		n, err := strconv.Atoi(values[0])
		if err != nil || n < q.ScaleMin || n > q.ScaleMax {
			return nil, invalid("answers", "question %q takes a whole number from %d to %d", q.ID, q.ScaleMin, q.ScaleMax)
		}
	}
	return values, nil
}

// buildQuestions validates question definitions and fills in ids and scale bounds.
func buildQuestions(in []QuestionInput) ([]model.Question, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]model.Question, 0, len(in))
	ids := make(map[string]bool, len(in))
	for i, qi := range in {
		field := fmt.Sprintf("questions[%d]", i)
		q := model.Question{
			ID:       strings.TrimSpace(qi.ID),
			Type:     qi.Type,
			Text:     strings.TrimSpace(qi.Text),
			Required: qi.Required,
		}
		if q.ID == "" {
			q.ID = "q" + strconv.Itoa(i+1)
		}
		if ids[q.ID] {
			return nil, invalid(field, "duplicate question id %q", q.ID)
		}
		ids[q.ID] = true

		if !q.Type.Valid() {
			return nil, invalid(field, "unknown question type %q", qi.Type)
		}
		if q.Text == "" {
			return nil, invalid(field, "text is required")
		}

		switch {
		case q.Type.HasOptions():
			seen := make(map[string]bool, len(qi.Options))
			for _, o := range qi.Options {
				o = strings.TrimSpace(o)
				if o == "" || seen[o] {
					continue
				}
				seen[o] = true
				q.Options = append(q.Options, o)
			}
			if len(q.Options) == 0 {
				return nil, invalid(field, "%s questions need at least one option", q.Type)
			}
		case q.Type == model.QuestionScale:
			q.ScaleMin, q.ScaleMax = qi.ScaleMin, qi.ScaleMax
			if q.ScaleMin == 0 && q.ScaleMax == 0 {
				q.ScaleMin, q.ScaleMax = 1, 10
			}
			if q.ScaleMin >= q.ScaleMax {
				return nil, invalid(field, "scale_min must be below scale_max")
			}
		}
		out = append(out, q)
	}
	return out, nil
}
