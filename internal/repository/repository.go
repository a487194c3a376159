package repository

type Repository interface {
	Save(entry *Entry) error
	Find(id string) (*Entry, error)
	FindByRequest(requestID string) ([]*Entry, error)
	FindAll() ([]*Entry, error)
	Delete(id string) error
}
