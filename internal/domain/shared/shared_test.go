package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_KindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"validation", NewValidationError("X", "x"), KindValidation},
		{"not found", NewNotFoundError("X", "x"), KindNotFound},
		{"referential", NewReferentialError("X", "x"), KindReferential},
		{"wrapped", fmt.Errorf("outer: %w", NewReferentialError("X", "x")), KindReferential},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("repo: %w", ErrNotFound)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxLimit, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 0}
	f.Normalize()
	assert.Equal(t, DefaultLimit, f.PageSize)
	assert.Equal(t, 20, f.Offset())
}

func TestNewPaginated_TotalPages(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 21, 1, 10)
	assert.Equal(t, 3, p.TotalPages)

	empty := NewPaginated([]int{}, 0, 1, 10)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestBaseAggregateRoot_PullEvents(t *testing.T) {
	agg := NewBaseAggregateRoot()
	ev := NewBaseDomainEvent("thing.created", "thing", 7)
	agg.RecordEvent(&ev)

	assert.Len(t, agg.PendingEvents(), 1)

	pulled := agg.PullEvents()
	assert.Len(t, pulled, 1)
	assert.Equal(t, "thing.created", pulled[0].EventType())
	assert.Equal(t, uint64(7), pulled[0].AggregateID())
	assert.Empty(t, agg.PendingEvents())
	assert.Empty(t, agg.PullEvents())
}
