package bowgo

import (
	"context"
	"fmt"
)

// Keypoint is the image location a descriptor was extracted at.
type Keypoint struct {
	X float32
	Y float32
}

// ROI is a rectangular region of interest in image coordinates.
type ROI struct {
	X float32
	Y float32
	W float32
	H float32
}

// Contains reports whether the keypoint lies within the region.
// Both borders are inclusive.
func (r ROI) Contains(kp Keypoint) bool {
	return r.X <= kp.X && kp.X <= r.X+r.W &&
		r.Y <= kp.Y && kp.Y <= r.Y+r.H
}

// DescriptorSource extracts descriptors from an image file.
// A nil roi means the whole image.
type DescriptorSource interface {
	Extract(ctx context.Context, path string, roi *ROI) ([][]float32, error)
}

// DescriptorCache loads previously extracted descriptors and their keypoints
// for an image file. found is false when the cache holds no entry for the
// path; that is not an error.
type DescriptorCache interface {
	Load(ctx context.Context, path string) (descriptors [][]float32, keypoints []Keypoint, found bool, err error)
}

// loadDescriptors resolves descriptors for an image path: a cached descriptor
// file wins, with its keypoints filtered to the region; otherwise the source
// extracts directly from the image.
func (c *Catalog) loadDescriptors(ctx context.Context, path string, roi *ROI) ([][]float32, error) {
	if c.cache != nil {
		descriptors, keypoints, found, err := c.cache.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("descriptor cache: %w", err)
		}

		if found {
			if roi == nil {
				return descriptors, nil
			}
			return filterROI(descriptors, keypoints, *roi)
		}
	}

	if c.source != nil {
		descriptors, err := c.source.Extract(ctx, path, roi)
		if err != nil {
			return nil, fmt.Errorf("descriptor source: %w", err)
		}
		return descriptors, nil
	}

	return nil, ErrNoDescriptorSource
}

// filterROI keeps the descriptors whose keypoints fall inside the region.
func filterROI(descriptors [][]float32, keypoints []Keypoint, roi ROI) ([][]float32, error) {
	if len(descriptors) != len(keypoints) {
		return nil, fmt.Errorf("descriptor cache: %d descriptors but %d keypoints", len(descriptors), len(keypoints))
	}

	var kept [][]float32
	for i, kp := range keypoints {
		if roi.Contains(kp) {
			kept = append(kept, descriptors[i])
		}
	}

	return kept, nil
}
