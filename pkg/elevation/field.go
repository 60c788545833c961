package elevation

// Field supplies terrain height and slope at local coordinates
type Field interface {
	Sample(x, y float64) float64
	Slope(x, y float64) float64
	Available() bool
}

// Unavailable returns a field that reads 0 everywhere. It stands in for
// the grid when no elevation could be decoded, so the build continues
// flat.
func Unavailable(cause error) *Flat {
	return &Flat{cause: cause}
}

// Flat is a zero-height field
type Flat struct {
	cause error
}

// Sample implements Field
func (f *Flat) Sample(x, y float64) float64 { return 0 }

// Slope implements Field
func (f *Flat) Slope(x, y float64) float64 { return 0 }

// Available reports false; a flat field never carries real terrain
func (f *Flat) Available() bool { return false }

// Err returns the reason elevation is unavailable
func (f *Flat) Err() error { return f.cause }

// Offset shifts every sample of a field by dz. Slope is unchanged.
func Offset(f Field, dz float64) Field {
	if dz == 0 {
		return f
	}
	return offsetField{Field: f, dz: dz}
}

type offsetField struct {
	Field
	dz float64
}

func (o offsetField) Sample(x, y float64) float64 {
	return o.Field.Sample(x, y) + o.dz
}
