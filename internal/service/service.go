// Package service реализует бизнес-логику сервиса учёта заказов типографии.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/printshop-orders/internal/model"
	"github.com/mmeshcher/printshop-orders/internal/repository"
	"github.com/mmeshcher/printshop-orders/internal/validation"
)

// ErrInvalidCredentials возвращается и при неизвестном имени оператора, и при
// неверном пароле: вызывающая сторона не должна различать эти случаи.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError описывает ошибку валидации входных данных заказа.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

const msgRequiredFields = "Please provide customer name, phone, and total amount"

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	CreateAdmin(ctx context.Context, username string, passwordHash []byte) (int64, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	UpdateOrder(ctx context.Context, o *model.Order) error
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, filter model.ListFilter, sort model.ListSort) ([]model.Order, error)
	GetStats(ctx context.Context, dayStart, dayEnd, monthStart time.Time) (*model.DashboardStats, error)
}

// Service содержит бизнес-логику сервиса учёта заказов.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// OrderInput описывает данные нового заказа. Указатели отличают
// непереданные поля от переданных нулевых значений.
type OrderInput struct {
	CustomerName string
	Phone        string
	Size         string
	TotalCents   *int64
	AdvanceCents *int64
	OrderDate    *time.Time
	DeliveryDate *time.Time
	Notes        string
}

// CreateOrder проверяет входные данные, рассчитывает производные поля и
// сохраняет новый заказ.
func (s *Service) CreateOrder(ctx context.Context, input OrderInput) (*model.Order, error) {
	name, okName := validation.TrimmedNonEmpty(input.CustomerName)
	phone, okPhone := validation.TrimmedNonEmpty(input.Phone)
	if !okName || !okPhone || input.TotalCents == nil {
		return nil, &ValidationError{Message: msgRequiredFields}
	}

	if !validation.IsValidAmount(*input.TotalCents) {
		return nil, &ValidationError{Message: "total amount must be non-negative"}
	}

	var advance int64
	if input.AdvanceCents != nil {
		if !validation.IsValidAmount(*input.AdvanceCents) {
			return nil, &ValidationError{Message: "advance amount must be non-negative"}
		}
		advance = *input.AdvanceCents
	}

	orderDate := s.now()
	if input.OrderDate != nil {
		orderDate = *input.OrderDate
	}

	o := &model.Order{
		CustomerName: name,
		Phone:        phone,
		Size:         strings.TrimSpace(input.Size),
		TotalCents:   *input.TotalCents,
		AdvanceCents: advance,
		OrderDate:    orderDate,
		DeliveryDate: input.DeliveryDate,
		Notes:        strings.TrimSpace(input.Notes),
	}
	o.Normalize()

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

// UpdateOrder применяет частичное обновление: изменяются только переданные
// поля, после чего производные поля пересчитываются и заказ сохраняется
// целиком.
func (s *Service) UpdateOrder(ctx context.Context, id string, patch model.OrderPatch) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.CustomerName != nil {
		name, ok := validation.TrimmedNonEmpty(*patch.CustomerName)
		if !ok {
			return nil, &ValidationError{Message: "customer name must not be empty"}
		}
		o.CustomerName = name
	}
	if patch.Phone != nil {
		phone, ok := validation.TrimmedNonEmpty(*patch.Phone)
		if !ok {
			return nil, &ValidationError{Message: "phone must not be empty"}
		}
		o.Phone = phone
	}
	if patch.Size != nil {
		o.Size = strings.TrimSpace(*patch.Size)
	}
	if patch.TotalCents != nil {
		if !validation.IsValidAmount(*patch.TotalCents) {
			return nil, &ValidationError{Message: "total amount must be non-negative"}
		}
		o.TotalCents = *patch.TotalCents
	}
	if patch.AdvanceCents != nil {
		if !validation.IsValidAmount(*patch.AdvanceCents) {
			return nil, &ValidationError{Message: "advance amount must be non-negative"}
		}
		o.AdvanceCents = *patch.AdvanceCents
	}
	if patch.OrderDate != nil {
		o.OrderDate = *patch.OrderDate
	}
	if patch.DeliveryDate != nil {
		o.DeliveryDate = *patch.DeliveryDate
	}
	if patch.Notes != nil {
		o.Notes = strings.TrimSpace(*patch.Notes)
	}

	o.Normalize()

	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// DeleteOrder удаляет заказ по идентификатору.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	return s.repo.DeleteOrder(ctx, id)
}

// ListOrders возвращает отфильтрованный список заказов. Если поле
// сортировки не задано, используется createdAt по убыванию.
func (s *Service) ListOrders(ctx context.Context, filter model.ListFilter, sort model.ListSort) ([]model.Order, error) {
	if sort.Field == "" {
		sort = model.ListSort{Field: "createdAt", Desc: true}
	}
	return s.repo.ListOrders(ctx, filter, sort)
}

// GetStats возвращает агрегированные показатели панели управления. Границы
// текущего дня и календарного месяца вычисляются по локальному времени.
func (s *Service) GetStats(ctx context.Context) (*model.DashboardStats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	return s.repo.GetStats(ctx, dayStart, dayEnd, monthStart)
}

// RegisterAdmin создаёт учётную запись оператора с хешированным паролем.
func (s *Service) RegisterAdmin(ctx context.Context, username, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateAdmin(ctx, username, hash)
}

// Authenticate проверяет имя и пароль оператора. Неизвестное имя и неверный
// пароль дают один и тот же результат ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.Admin, error) {
	admin, err := s.repo.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return admin, nil
}
