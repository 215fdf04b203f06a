package services

import "consultapp/internal/models"

// Tenant access policy. All three are total: a nil subject or record never
// panics and never grants more than the owner would get.

// CanRead reports whether subject may read the private tenant record.
func CanRead(subject *models.Subject, record *models.Tenant) bool {
	if subject == nil || subject.ID == "" || record == nil {
		return false
	}
	return record.OwnerID == subject.ID
}

// CanWrite reports whether subject may write to the slug holding existing.
// A free slug (nil existing) is writable by any authenticated subject.
func CanWrite(subject *models.Subject, existing *models.Tenant) bool {
	if subject == nil || subject.ID == "" {
		return false
	}
	if existing == nil {
		return true
	}
	return existing.OwnerID == subject.ID
}

// CanDelete requires an existing record owned by subject.
func CanDelete(subject *models.Subject, existing *models.Tenant) bool {
	if subject == nil || subject.ID == "" || existing == nil {
		return false
	}
	return existing.OwnerID == subject.ID
}
