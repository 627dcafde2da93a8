package prismic

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config identifies a content repository. Both fields are required; there is
// no implicit environment lookup here, callers build the value once at startup.
type Config struct {
	Endpoint    string `validate:"required,url"` // e.g. https://repo.cdn.prismic.io/api/v2
	AccessToken string `validate:"required"`
}

// Validate reports the first missing or malformed field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) endpoint() string {
	return strings.TrimRight(c.Endpoint, "/")
}
