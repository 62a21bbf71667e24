//go:build !cgo

package sqlast

func init() {
	register(BackendPostgres, func() backend { return postgresBackend{} })
}

// postgresBackend needs libpg_query, which is only linked with cgo.
type postgresBackend struct{}

func (postgresBackend) parse(string) (*Statement, *ParseError) {
	return nil, &ParseError{Message: "postgres parser unavailable: built without cgo"}
}
