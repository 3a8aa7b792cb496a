package domain

// ProjectID keys a collaboration room. Rooms are not persisted; the id
// refers to a project row owned by the REST layer's store.
type ProjectID string
