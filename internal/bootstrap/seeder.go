// Package bootstrap отвечает за создание учётной записи оператора по
// умолчанию при старте процесса.
package bootstrap

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/printshop-orders/internal/model"
	"github.com/mmeshcher/printshop-orders/internal/repository"
)

// DefaultUsername — имя учётной записи оператора, создаваемой при старте.
const DefaultUsername = "admin"

const (
	defaultPassword   = "admin123"
	readinessAttempts = 10
	readinessDelay    = time.Second
)

// Storage описывает часть репозитория, нужную для проверки готовности
// хранилища и поиска учётной записи.
type Storage interface {
	Ping(ctx context.Context) error
	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
}

// Registrar создаёт учётную запись оператора, хешируя пароль.
type Registrar interface {
	RegisterAdmin(ctx context.Context, username, password string) (int64, error)
}

// Seeder выполняет одноразовую идемпотентную инициализацию учётной записи
// оператора. Любая ошибка логируется и не прерывает запуск процесса.
type Seeder struct {
	storage   Storage
	registrar Registrar
	logger    *zap.SugaredLogger

	attempts int
	delay    time.Duration
	sleep    func(time.Duration)
}

// NewSeeder создаёт Seeder с фиксированным бюджетом ожидания готовности
// хранилища.
func NewSeeder(storage Storage, registrar Registrar, logger *zap.SugaredLogger) *Seeder {
	return &Seeder{
		storage:   storage,
		registrar: registrar,
		logger:    logger,
		attempts:  readinessAttempts,
		delay:     readinessDelay,
		sleep:     time.Sleep,
	}
}

// EnsureDefaultAdmin дожидается готовности хранилища и создаёт учётную
// запись оператора по умолчанию, если её ещё нет. Повторный вызов при уже
// существующей записи ничего не меняет.
func (s *Seeder) EnsureDefaultAdmin(ctx context.Context) {
	if !s.waitForStorage(ctx) {
		s.logger.Errorw("admin seeding skipped: storage not ready", "attempts", s.attempts)
		return
	}

	_, err := s.storage.GetAdminByUsername(ctx, DefaultUsername)
	if err == nil {
		s.logger.Infow("default admin already exists", "username", DefaultUsername)
		return
	}
	if !errors.Is(err, repository.ErrAdminNotFound) {
		s.logger.Errorw("admin lookup failed, seeding skipped", "error", err.Error())
		return
	}

	if _, err := s.registrar.RegisterAdmin(ctx, DefaultUsername, defaultPassword); err != nil {
		// Параллельный экземпляр мог успеть создать запись первым.
		if errors.Is(err, repository.ErrAdminExists) {
			return
		}
		s.logger.Errorw("default admin creation failed", "error", err.Error())
		return
	}

	s.logger.Infow("default admin created", "username", DefaultUsername)
	s.logger.Warn("default admin uses the built-in password, change it after first login")
}

func (s *Seeder) waitForStorage(ctx context.Context) bool {
	for i := 0; i < s.attempts; i++ {
		if err := ctx.Err(); err != nil {
			return false
		}
		if err := s.storage.Ping(ctx); err == nil {
			return true
		}
		if i < s.attempts-1 {
			s.sleep(s.delay)
		}
	}
	return false
}
