// Package utils holds small generic helpers for optional (pointer) fields.
package utils

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// PtrIf returns a pointer to v when set is true and nil otherwise. It maps
// "was this flag given" onto the nil-means-unchanged convention of update requests.
func PtrIf[T any](set bool, v T) *T {
	if !set {
		return nil
	}
	return &v
}
