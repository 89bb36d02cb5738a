//go:build !linux

package hw

// DetectCapacity is unavailable off Linux; hosts must configure an
// explicit capacity or family/model pair instead.
func DetectCapacity() (int, error) {
	return 0, ErrUnsupportedCPU
}
