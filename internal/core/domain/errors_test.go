package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrInvalidSettings", ErrInvalidSettings},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrEmbedding", ErrEmbedding},
		{"ErrTokenEstimation", ErrTokenEstimation},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Unique tests that no two sentinels match each other
func TestErrors_Unique(t *testing.T) {
	all := []error{
		ErrNotFound, ErrInvalidInput, ErrInvalidSettings, ErrUnsupportedType,
		ErrEmbedding, ErrTokenEstimation, ErrEmbeddingUnavailable, ErrVectorIndexUnavailable,
	}
	for i := range all {
		for j := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(all[i], all[j]), "%v should not match %v", all[i], all[j])
		}
	}
}

// TestErrEmbedding_WrapsCause tests the double-wrapped collaborator fault
func TestErrEmbedding_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("segment: %w: %w", ErrEmbedding, cause)

	assert.ErrorIs(t, err, ErrEmbedding)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTokenEstimation)
}
