package domain

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldViolation is a single field-level validation failure.
type FieldViolation struct {
	Field   string
	Message string
}

// JoinViolations joins violation messages with ". ", in order.
func JoinViolations(vs []FieldViolation) string {
	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, ". ")
}

// NewObjectID returns a fresh record identifier.
func NewObjectID() primitive.ObjectID {
	return primitive.NewObjectID()
}

// ParseObjectID parses a 24-character hex record identifier.
func ParseObjectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// IsObjectIDHex reports whether id is a well-formed record identifier.
func IsObjectIDHex(id string) bool {
	return primitive.IsValidObjectID(id)
}
