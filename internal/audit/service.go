package audit

import (
	"fmt"
	"log"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

// Entity types recorded on events.
const (
	EntityAuthor       = "author"
	EntityBook         = "book"
	EntityBookInstance = "book_instance"
	EntityGenre        = "genre"
	EntityLanguage     = "language"
	EntityUser         = "user"
)

const maxFieldLen = 500

// Request carries who made a change and from where.
type Request struct {
	UserID    uint
	IPAddress string
	UserAgent string
}

// Service provides high-level audit logging functionality.
//
// Writes are synchronous. A failed write is logged and otherwise ignored so
// that auditing never breaks the request that triggered it.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

func (s *Service) record(event *entities.AuditEvent) {
	if s == nil {
		return
	}
	if err := s.repo.LogEvent(event); err != nil {
		log.Printf("Failed to log audit event %s: %v", event.Action, err)
	}
}

func newEvent(req Request, eventType entities.AuditEventType, action string) *entities.AuditEvent {
	return &entities.AuditEvent{
		UserID:    req.UserID,
		EventType: eventType,
		Action:    action,
		IPAddress: req.IPAddress,
		UserAgent: truncate(req.UserAgent, maxFieldLen),
		Status:    entities.AuditStatusSuccess,
	}
}

// LogRenewal records a due date change made through the renewal form.
func (s *Service) LogRenewal(req Request, instanceID, title, dueBack string) {
	event := newEvent(req, entities.AuditEventRenewal, EntityBookInstance+"_renew")
	event.EntityType = EntityBookInstance
	event.EntityKey = instanceID
	event.Description = truncate(fmt.Sprintf("Renewed %q until %s", title, dueBack), maxFieldLen)
	s.record(event)
}

// LogCreate records a new catalog record.
func (s *Service) LogCreate(req Request, entityType, entityKey, name string) {
	event := newEvent(req, entities.AuditEventCreate, entityType+"_create")
	event.EntityType = entityType
	event.EntityKey = entityKey
	event.Description = truncate("Created "+entityType+": "+name, maxFieldLen)
	s.record(event)
}

// LogUpdate records an edit of a catalog record.
func (s *Service) LogUpdate(req Request, entityType, entityKey, name string) {
	event := newEvent(req, entities.AuditEventUpdate, entityType+"_update")
	event.EntityType = entityType
	event.EntityKey = entityKey
	event.Description = truncate("Updated "+entityType+": "+name, maxFieldLen)
	s.record(event)
}

// LogDelete records a deletion. A non-nil err marks the attempt as failed.
func (s *Service) LogDelete(req Request, entityType, entityKey, name string, err error) {
	event := newEvent(req, entities.AuditEventDelete, entityType+"_delete")
	event.EntityType = entityType
	event.EntityKey = entityKey
	event.Description = truncate("Deleted "+entityType+": "+name, maxFieldLen)
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxFieldLen)
	}
	s.record(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(req Request, action string, success bool) {
	event := newEvent(req, entities.AuditEventAuth, action)
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.record(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(userID, limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, userID, limit, offset)
}

// History returns every event recorded for one record.
func (s *Service) History(entityType, entityKey string) ([]entities.AuditEvent, error) {
	return s.repo.GetEventsForEntity(entityType, entityKey)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
