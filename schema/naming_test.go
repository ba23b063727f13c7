package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Konsultn-Engineering/querykit/query"
)

type Account struct {
	ID        int64
	OwnerName string `db:"owner"`
	Balance   float64
	secret    string
	Notes     string `db:"-"`
	Email     string `db:"column:email_address;unique"`
	Flag      bool   `db:"unique"`
}

type BlogPost struct{}

type Person struct{}

type HTTPRequestLog struct{}

type Audited struct {
	CreatedBy string
}

type Transfer struct {
	Audited
	Amount int64 `db:"amount"`
}

func TestTableName(t *testing.T) {
	assert.Equal(t, query.Ident("accounts"), TableName[Account]())
	assert.Equal(t, query.Ident("accounts"), TableName[*Account]())
	assert.Equal(t, query.Ident("blog_posts"), TableName[BlogPost]())
	assert.Equal(t, query.Ident("people"), TableName[Person]())
	assert.Equal(t, query.Ident("http_request_logs"), TableName[HTTPRequestLog]())
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []query.Ident{"id", "owner", "balance", "email_address", "flag"}, Columns[Account]())
	assert.Equal(t, []query.Ident{"created_by", "amount"}, Columns[Transfer]())
	assert.Nil(t, Columns[int]())

	// callers cannot corrupt the cached slice
	cols := Columns[Transfer]()
	cols[0] = "tampered"
	assert.Equal(t, query.Ident("created_by"), Columns[Transfer]()[0])
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"ID", "id"},
		{"UserID", "user_id"},
		{"FirstName", "first_name"},
		{"HTTPServer", "http_server"},
		{"OAuth2Token", "o_auth2_token"},
		{"Address1Line", "address1_line"},
		{"already_snake", "already_snake"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, toSnakeCase(tc.in))
		})
	}
}

func TestTagColumn(t *testing.T) {
	name, skip := tagColumn("-")
	assert.True(t, skip)
	assert.Empty(t, name)

	name, skip = tagColumn("email;not null")
	assert.False(t, skip)
	assert.Equal(t, "email", name)

	name, _ = tagColumn("type:text;column:body")
	assert.Equal(t, "body", name)

	name, _ = tagColumn("primary;auto_generate")
	assert.Empty(t, name)
}
