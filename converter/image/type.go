package image

import "fmt"

type Type struct {
	s string
}

var (
	JPEG = Type{"jpeg"}
	PNG  = Type{"png"}
)

func (t Type) String() string {
	return t.s
}

// Extension returns the file extension including the leading dot.
func (t Type) Extension() string {
	if t == JPEG {
		return ".jpg"
	}
	return "." + t.s
}

func (t Type) ContentType() string {
	return "image/" + t.s
}

// MakeFromString accepts the short "jpg" spelling as well as "jpeg".
func MakeFromString(s string) (Type, error) {
	switch s {
	case JPEG.s, "jpg":
		return JPEG, nil
	case PNG.s:
		return PNG, nil
	}

	return Type{}, fmt.Errorf("unknown type: %s", s)
}
