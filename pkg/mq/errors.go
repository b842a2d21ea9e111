package mq

type TempError struct {
	Err error
}

func (e TempError) Error() string {
	return e.Err.Error()
}

func (e TempError) Temporary() bool {
	return true
}

func Temporary(err error) error {
	return TempError{Err: err}
}

// PermError marks an error that must never be retried by the queue, such as
// a batch whose recipients were all permanently rejected.
type PermError struct {
	Err error
}

func (e PermError) Error() string {
	return e.Err.Error()
}

func Unrecoverable(err error) error {
	return PermError{Err: err}
}
