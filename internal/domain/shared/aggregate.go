package shared

// AggregateRoot is an entity that records domain events while it changes.
// Events are handed to a publisher only after the change is persisted.
type AggregateRoot interface {
	Entity
	RecordEvent(event DomainEvent)
	PendingEvents() []DomainEvent
	PullEvents() []DomainEvent
}

// BaseAggregateRoot is embedded by aggregates to buffer their events
type BaseAggregateRoot struct {
	BaseEntity
	pending []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity()}
}

// RecordEvent buffers an event
func (a *BaseAggregateRoot) RecordEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the buffered events without clearing them
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// PullEvents returns the buffered events and empties the buffer
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
