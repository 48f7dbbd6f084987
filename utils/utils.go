package utils

func Contains[T comparable](slice []T, x T) bool {
	for _, i := range slice {
		if i == x {
			return true
		}
	}
	return false
}

// ContainsAny reports whether any of xs is present in slice.
func ContainsAny[T comparable](slice []T, xs ...T) bool {
	for _, x := range xs {
		if Contains(slice, x) {
			return true
		}
	}
	return false
}
