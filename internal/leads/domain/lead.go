// Package domain provides core business rules for the leads bounded context.
package domain

import "time"

// Scalar field names. Name, phone and status live on the record itself; every
// other scalar is an attribute.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldName      = "name"
	FieldPhone     = "phone"
	FieldStatus    = "status"
	FieldEmail     = "email"
	FieldAddress   = "address"
	FieldZipCode   = "zipCode"
	FieldCity      = "city"
	FieldNeed      = "need"
	FieldNotes     = "notes"
	FieldSource    = "source"
)

// Relation and list field names.
const (
	FieldOrders      = "orders"
	FieldActivities  = "activities"
	FieldAttachments = "attachments"
	FieldAssignees   = "assignees"
)

// Attachment is a file linked to a lead. URL, or ID when URL is empty, identifies it.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Key returns the identity used to de-duplicate attachments.
func (a Attachment) Key() string {
	if a.URL != "" {
		return a.URL
	}
	return a.ID
}

// Lead is the unit of deduplication.
type Lead struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Phone       string            `json:"phone"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Status      string            `json:"status,omitempty"`
	AssigneeIDs []string          `json:"assigneeIds,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	OrderIDs    []string          `json:"orderIds,omitempty"`
	ActivityIDs []string          `json:"activityIds,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Field returns a scalar field by name. Unknown names read from Attributes.
func (l Lead) Field(name string) string {
	switch name {
	case FieldID:
		return l.ID
	case FieldName:
		return l.Name
	case FieldPhone:
		return l.Phone
	case FieldStatus:
		return l.Status
	default:
		return l.Attributes[name]
	}
}

// SetField writes a scalar field by name. The id is immutable and is ignored.
func (l *Lead) SetField(name, value string) {
	switch name {
	case FieldID, FieldCreatedAt:
		return
	case FieldName:
		l.Name = value
	case FieldPhone:
		l.Phone = value
	case FieldStatus:
		l.Status = value
	default:
		if l.Attributes == nil {
			l.Attributes = make(map[string]string)
		}
		l.Attributes[name] = value
	}
}

// Email is a shortcut for the email attribute.
func (l Lead) Email() string {
	return l.Attributes[FieldEmail]
}

// Clone returns a deep copy so callers can consolidate without aliasing the input.
func (l Lead) Clone() Lead {
	out := l
	if l.Attributes != nil {
		out.Attributes = make(map[string]string, len(l.Attributes))
		for k, v := range l.Attributes {
			out.Attributes[k] = v
		}
	}
	out.AssigneeIDs = append([]string(nil), l.AssigneeIDs...)
	out.Attachments = append([]Attachment(nil), l.Attachments...)
	out.OrderIDs = append([]string(nil), l.OrderIDs...)
	out.ActivityIDs = append([]string(nil), l.ActivityIDs...)
	return out
}

// IsBlank reports whether a scalar value counts as empty for consolidation.
// Whitespace is a value.
func IsBlank(value string) bool {
	return value == ""
}

// LeadUpdate is the single write issued against a master record.
// Relation ids are the full target sets, not deltas.
type LeadUpdate struct {
	Name        string
	Phone       string
	Attributes  map[string]string
	Status      string
	AssigneeIDs []string
	Attachments []Attachment
	OrderIDs    []string
	ActivityIDs []string
}

// protectedFields never reach the store through an update.
var protectedFields = map[string]bool{
	FieldID:        true,
	FieldCreatedAt: true,
	"createdTime":  true,
}

// NewLeadUpdate builds the update for a consolidated lead: protected and empty
// attributes are dropped, everything else is written as-is.
func NewLeadUpdate(l Lead) LeadUpdate {
	attrs := make(map[string]string, len(l.Attributes))
	for k, v := range l.Attributes {
		if protectedFields[k] || IsBlank(v) {
			continue
		}
		attrs[k] = v
	}
	return LeadUpdate{
		Name:        l.Name,
		Phone:       l.Phone,
		Attributes:  attrs,
		Status:      l.Status,
		AssigneeIDs: append([]string(nil), l.AssigneeIDs...),
		Attachments: append([]Attachment(nil), l.Attachments...),
		OrderIDs:    append([]string(nil), l.OrderIDs...),
		ActivityIDs: append([]string(nil), l.ActivityIDs...),
	}
}
