package main

// Category groups control sequences by what they tell the terminal to do.
// It only picks the annotation color in the transcript; parsing never
// depends on it.
type Category int

const (
	CategoryUnclassified Category = iota
	CategoryMargin
	CategoryStyle
	CategoryErase
	CategoryMovement
	CategoryScroll
)

// Classify returns the category for a control sequence's final byte.
// Bytes outside the known set are CategoryUnclassified.
func Classify(final byte) Category {
	switch final {
	case 'r':
		return CategoryMargin
	case 'm':
		return CategoryStyle
	case 'J', 'K':
		return CategoryErase
	case 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H':
		return CategoryMovement
	case 'S', 'T':
		return CategoryScroll
	default:
		return CategoryUnclassified
	}
}

// ColorCode returns the ANSI foreground color (the N in ESC[3Nm) used to
// annotate the category. ok is false for unclassified sequences, which are
// annotated dim instead.
func (c Category) ColorCode() (code int, ok bool) {
	switch c {
	case CategoryErase:
		return 1, true // red
	case CategoryStyle:
		return 2, true // green
	case CategoryMargin:
		return 3, true // yellow
	case CategoryScroll:
		return 4, true // blue
	case CategoryMovement:
		return 6, true // cyan
	default:
		return 0, false
	}
}

func (c Category) String() string {
	switch c {
	case CategoryMargin:
		return "margin"
	case CategoryStyle:
		return "style"
	case CategoryErase:
		return "erase"
	case CategoryMovement:
		return "movement"
	case CategoryScroll:
		return "scroll"
	default:
		return "unclassified"
	}
}
