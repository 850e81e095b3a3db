package domain

var Tables = []interface{}{
	// Catalog
	&Product{},
	// Auth
	&AuthUser{},
	&AuthToken{},
}
