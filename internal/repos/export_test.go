package repos

// SetHashPassword replaces the seed's password hasher until restore is called.
func SetHashPassword(f func(string) (string, error)) (restore func()) {
	prev := hashPassword
	hashPassword = f
	return func() { hashPassword = prev }
}
