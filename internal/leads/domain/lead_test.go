package domain

import "testing"

func TestFieldRoutesCoreAndAttributes(t *testing.T) {
	lead := Lead{ID: "1", Name: "Marco", Phone: "333", Status: "new"}
	lead.SetField(FieldEmail, "m@example.com")
	lead.SetField(FieldID, "other")

	if lead.ID != "1" {
		t.Fatalf("expected id to stay immutable, got %q", lead.ID)
	}
	if lead.Field(FieldEmail) != "m@example.com" || lead.Email() != "m@example.com" {
		t.Fatalf("expected email attribute to be set, got %+v", lead.Attributes)
	}
	if lead.Field(FieldName) != "Marco" || lead.Field(FieldPhone) != "333" || lead.Field(FieldStatus) != "new" {
		t.Fatalf("unexpected core fields: %+v", lead)
	}
	if lead.Field("missing") != "" {
		t.Fatalf("expected unknown attribute to read as empty")
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	original := Lead{
		ID:         "1",
		Attributes: map[string]string{FieldCity: "Roma"},
		OrderIDs:   []string{"A"},
	}
	clone := original.Clone()
	clone.Attributes[FieldCity] = "Milano"
	clone.OrderIDs[0] = "B"

	if original.Attributes[FieldCity] != "Roma" || original.OrderIDs[0] != "A" {
		t.Fatalf("clone mutated original: %+v", original)
	}
}

func TestNewLeadUpdateDropsProtectedAndEmptyAttributes(t *testing.T) {
	update := NewLeadUpdate(Lead{
		ID:   "1",
		Name: "Marco",
		Attributes: map[string]string{
			FieldEmail:     "m@example.com",
			FieldNotes:     "",
			FieldCity:      " ",
			FieldCreatedAt: "2024-01-01",
			"createdTime":  "2024-01-01",
		},
		OrderIDs: []string{"A", "B"},
	})

	if len(update.Attributes) != 2 || update.Attributes[FieldEmail] != "m@example.com" || update.Attributes[FieldCity] != " " {
		t.Fatalf("unexpected attributes: %+v", update.Attributes)
	}
	if update.Name != "Marco" || len(update.OrderIDs) != 2 {
		t.Fatalf("unexpected update: %+v", update)
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank("") {
		t.Fatalf("expected empty string to be blank")
	}
	if IsBlank(" ") || IsBlank("\t") {
		t.Fatalf("expected whitespace to count as a value")
	}
}

func TestAttachmentKeyPrefersURL(t *testing.T) {
	if (Attachment{ID: "att1", URL: "https://files/x.pdf"}).Key() != "https://files/x.pdf" {
		t.Fatalf("expected url key")
	}
	if (Attachment{ID: "att1"}).Key() != "att1" {
		t.Fatalf("expected id key")
	}
}
