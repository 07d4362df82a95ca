package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

var segmentEncoding = base64.RawURLEncoding.Strict()

// DecodeSegment decodes one base64url (unpadded) token segment. Line
// breaks, which the decoder would otherwise skip, are refused so that only
// canonical segments decode.
func DecodeSegment(seg string) ([]byte, error) {
	if i := strings.IndexAny(seg, "\r\n"); i >= 0 {
		return nil, base64.CorruptInputError(i)
	}
	return segmentEncoding.DecodeString(seg)
}

// EncodeSegment is the inverse of DecodeSegment.
func EncodeSegment(raw []byte) string {
	return segmentEncoding.EncodeToString(raw)
}

// Header is the decoded first token segment.
type Header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Typ string `json:"typ,omitempty"`
}

// Audience accepts both the string and the array form of the aud claim.
type Audience []string

// Contains reports whether aud lists want verbatim.
func (a Audience) Contains(want string) bool {
	for _, v := range a {
		if v == want {
			return true
		}
	}
	return false
}

func (a *Audience) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Audience{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("aud: %w", err)
	}
	*a = many
	return nil
}

// Claims is the decoded payload. Fields this service relies on are typed;
// everything else is kept verbatim in Extra.
type Claims struct {
	Audience  Audience
	ExpiresAt int64
	Email     string
	Name      string
	Extra     map[string]json.RawMessage
}

func (c *Claims) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("claims: not an object")
	}

	if raw, ok := fields["aud"]; ok {
		if err := json.Unmarshal(raw, &c.Audience); err != nil {
			return err
		}
		delete(fields, "aud")
	}
	if raw, ok := fields["exp"]; ok {
		exp, err := parseNumericDate(raw)
		if err != nil {
			return err
		}
		c.ExpiresAt = exp
		delete(fields, "exp")
	}
	if raw, ok := fields["email"]; ok {
		if err := json.Unmarshal(raw, &c.Email); err != nil {
			return fmt.Errorf("email: %w", err)
		}
		delete(fields, "email")
	}
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &c.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
		delete(fields, "name")
	}
	c.Extra = fields
	return nil
}

func (c Claims) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+4)
	for k, v := range c.Extra {
		out[k] = v
	}
	switch len(c.Audience) {
	case 0:
	case 1:
		out["aud"] = c.Audience[0]
	default:
		out["aud"] = []string(c.Audience)
	}
	if c.ExpiresAt != 0 {
		out["exp"] = c.ExpiresAt
	}
	if c.Email != "" {
		out["email"] = c.Email
	}
	if c.Name != "" {
		out["name"] = c.Name
	}
	return json.Marshal(out)
}

// parseNumericDate reads an epoch-seconds value that may be written as a
// float by some issuers.
func parseNumericDate(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("exp: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("exp: not a number")
	}
	return int64(math.Floor(f)), nil
}
