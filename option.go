package eventhandler

// Option holds either a value (Some) or nothing (None). The zero Option is None.
type Option[T any] struct {
	value T
	ok    bool
}

// Some returns an Option holding v
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an empty Option
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the held value and whether there was one
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome reports whether o holds a value
func (o Option[T]) IsSome() bool {
	return o.ok
}
