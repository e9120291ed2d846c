package models

// GetID implementations let the storage layer deduplicate generically.

func (e SignificantEvent) GetID() string { return e.ID }
func (e MetaEpoch) GetID() string        { return e.ID }
func (e Event) GetID() string            { return e.ID }
func (p Placement) GetID() string        { return p.ID }
func (l ArmyList) GetID() string         { return l.ID }
func (p Pairing) GetID() string          { return p.ID }
func (r ReviewQueueItem) GetID() string  { return r.ID }
