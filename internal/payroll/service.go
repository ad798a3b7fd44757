package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Store
	GetEmployee(ctx context.Context, id int64) (Employee, error)
	DeactivateEmployee(ctx context.Context, id int64) error
}

// Service manages employees. Salary allocation lives in Materializer.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CreateEmployee creates the user profile and the employee row in one
// transaction.
func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (Employee, error) {
	if err := checkEmployee(&in); err != nil {
		return Employee{}, err
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		userID, err := tx.InsertUser(ctx, in)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		id, err = tx.InsertEmployee(ctx, userID, in)
		if err != nil {
			return fmt.Errorf("insert employee: %w", err)
		}
		return nil
	})
	if err != nil {
		return Employee{}, fmt.Errorf("payroll: create employee: %w", err)
	}
	s.logger.Info("employee created", slog.Int64("employee_id", id), slog.String("code", in.EmployeeCode))
	return s.repo.GetEmployee(ctx, id)
}

// UpdateEmployee edits the employee and its profile.
func (s *Service) UpdateEmployee(ctx context.Context, id int64, in EmployeeInput) (Employee, error) {
	if err := checkEmployee(&in); err != nil {
		return Employee{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateEmployee(ctx, id, in); err != nil {
			return err
		}
		return tx.UpdateUser(ctx, id, in)
	})
	if err != nil {
		return Employee{}, fmt.Errorf("payroll: update employee: %w", err)
	}
	return s.repo.GetEmployee(ctx, id)
}

// DeactivateEmployee soft-deletes an employee. Past allocations stay.
func (s *Service) DeactivateEmployee(ctx context.Context, id int64) error {
	return s.repo.DeactivateEmployee(ctx, id)
}

// GetEmployee loads one employee.
func (s *Service) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

// ListEmployees lists employees.
func (s *Service) ListEmployees(ctx context.Context, includeInactive bool) ([]Employee, error) {
	return s.repo.ListEmployees(ctx, includeInactive)
}

func checkEmployee(in *EmployeeInput) error {
	in.EmployeeCode = strings.ToUpper(strings.TrimSpace(in.EmployeeCode))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Salary.IsNegative() {
		return ErrInvalidSalary
	}
	if in.HourlyRate != nil && in.HourlyRate.IsNegative() {
		return ErrInvalidSalary
	}
	return shared.Validate(*in)
}
