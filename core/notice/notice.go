// Package notice holds school-wide announcements.
package notice

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
)

var ErrNotFound = errors.New("notice not found")

type Notice struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	CreatedBy *string   `json:"created_by" db:"created_by"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NewNotice struct {
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
	// Notify emails the notice to every active user with an address.
	Notify bool `json:"notify"`
}

type (
	Repository interface {
		Create(ctx context.Context, n Notice) (Notice, error)
		Get(ctx context.Context, id int64) (Notice, error)
		// List returns notices newest first; activeOnly drops deactivated ones.
		List(ctx context.Context, activeOnly bool) ([]Notice, error)
		SetActive(ctx context.Context, id int64, active bool) (Notice, error)
	}

	Service interface {
		Post(ctx context.Context, actor user.User, nn NewNotice) (Notice, error)
		Active(ctx context.Context) ([]Notice, error)
		All(ctx context.Context, actor user.User) ([]Notice, error)
		SetActive(ctx context.Context, actor user.User, id int64, active bool) (Notice, error)
	}

	service struct {
		repo     Repository
		users    user.Service
		mailSvc  core.EmailService
		validate *validator.Validate
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service, mailSvc core.EmailService, validate *validator.Validate, logger core.Logger) Service {
	return &service{repo: repo, users: users, mailSvc: mailSvc, validate: validate, logger: logger}
}

func (svc *service) Post(ctx context.Context, actor user.User, nn NewNotice) (Notice, error) {
	if !actor.Can(user.CapPostNotice) {
		return Notice{}, core.ErrPermissionDenied
	}
	nn.Title = core.CleanString(nn.Title)
	nn.Message = core.CleanString(nn.Message)
	if err := svc.validate.Struct(nn); err != nil {
		return Notice{}, err
	}

	createdBy := actor.ID
	n, err := svc.repo.Create(ctx, Notice{
		Title:     nn.Title,
		Message:   nn.Message,
		CreatedBy: &createdBy,
		IsActive:  true,
		CreatedAt: core.NowFunc().UTC(),
	})
	if err != nil {
		return Notice{}, errors.Wrap(err, "creating notice")
	}
	if nn.Notify {
		svc.broadcast(ctx, n)
	}
	return n, nil
}

// broadcast sends the notice to every active user having an email, one message each.
func (svc *service) broadcast(ctx context.Context, n Notice) {
	active := true
	users, err := svc.users.Query(ctx, &user.QueryFilter{IsActive: &active}, nil)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("listing notice recipients: %v", err), err)
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(users))
	for _, usr := range users {
		if usr.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name(), Address: usr.Email}},
			Subject:      n.Title,
			TemplateName: "notice",
			TemplateData: map[string]string{"Title": n.Title, "Message": n.Message},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *service) Active(ctx context.Context) ([]Notice, error) {
	return svc.repo.List(ctx, true)
}

func (svc *service) All(ctx context.Context, actor user.User) ([]Notice, error) {
	if !actor.Can(user.CapPostNotice) {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.List(ctx, false)
}

func (svc *service) SetActive(ctx context.Context, actor user.User, id int64, active bool) (Notice, error) {
	if !actor.Can(user.CapPostNotice) {
		return Notice{}, core.ErrPermissionDenied
	}
	return svc.repo.SetActive(ctx, id, active)
}
