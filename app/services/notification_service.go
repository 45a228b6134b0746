package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/engageworks/drip-engine/config"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/utils"
)

// StaffNotifier tells employees about demo requests, meetings and escalations.
// Delivery goes over the same WhatsApp gateway as outbound drip messages.
type StaffNotifier interface {
	NotifyEmployee(ctx context.Context, employee *models.Employee, message string) error
	NotifyAdmin(ctx context.Context, message string) error
}

// StaffNotifierImpl implements StaffNotifier
type StaffNotifierImpl struct {
	gateway    WhatsAppGateway
	adminPhone string
	country    string
}

// NewStaffNotifier creates a new staff notifier. adminPhone receives
// notifications for employees without a usable phone number.
func NewStaffNotifier(gateway WhatsAppGateway, cfg *config.DispatchConfig, adminPhone string) StaffNotifier {
	return &StaffNotifierImpl{
		gateway:    gateway,
		adminPhone: adminPhone,
		country:    cfg.DefaultCountry,
	}
}

// NotifyEmployee sends the message to the employee's phone, falling back to
// the admin phone when the employee has none.
func (s *StaffNotifierImpl) NotifyEmployee(ctx context.Context, employee *models.Employee, message string) error {
	if employee != nil && employee.Phone != nil && *employee.Phone != "" {
		to := s.withCountry(*employee.Phone)
		if _, err := s.gateway.SendText(ctx, to, message); err == nil {
			return nil
		}
	}
	return s.NotifyAdmin(ctx, message)
}

// NotifyAdmin sends the message to the configured admin phone.
func (s *StaffNotifierImpl) NotifyAdmin(ctx context.Context, message string) error {
	if s.adminPhone == "" {
		return fmt.Errorf("admin phone not configured")
	}
	_, err := s.gateway.SendText(ctx, s.withCountry(s.adminPhone), message)
	return err
}

func (s *StaffNotifierImpl) withCountry(phone string) string {
	digits := utils.DigitsOnly(phone)
	if len(digits) == 10 && !strings.HasPrefix(digits, s.country) {
		return s.country + digits
	}
	return digits
}

// MockStaffNotifier implements StaffNotifier for testing
type MockStaffNotifier struct {
	EmployeeNotices []string
	AdminNotices    []string
}

// NewMockStaffNotifier creates a new mock staff notifier
func NewMockStaffNotifier() *MockStaffNotifier {
	return &MockStaffNotifier{}
}

func (m *MockStaffNotifier) NotifyEmployee(ctx context.Context, employee *models.Employee, message string) error {
	m.EmployeeNotices = append(m.EmployeeNotices, message)
	return nil
}

func (m *MockStaffNotifier) NotifyAdmin(ctx context.Context, message string) error {
	m.AdminNotices = append(m.AdminNotices, message)
	return nil
}
