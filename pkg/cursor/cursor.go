package cursor

import (
	"encoding/base64"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalid is returned when a cursor token cannot be decoded back into an
// object ID. A syntactically valid token produced against a different filter
// set still decodes fine; where it lands is up to the query it is used with.
var ErrInvalid = errors.New("invalid cursor")

// Encode turns a document identity into an opaque page cursor.
func Encode(id primitive.ObjectID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.Hex()))
}

// Decode reverses Encode. Malformed input yields ErrInvalid, never a panic.
func Decode(token string) (primitive.ObjectID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return primitive.NilObjectID, ErrInvalid
	}
	id, err := primitive.ObjectIDFromHex(string(raw))
	if err != nil {
		return primitive.NilObjectID, ErrInvalid
	}
	return id, nil
}
