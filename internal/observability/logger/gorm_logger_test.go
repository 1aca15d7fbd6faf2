package logger

import "testing"

func TestOperationFromSQL(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{sql: "SELECT * FROM payment_history", want: "SELECT"},
		{sql: "  insert into payment_methods (id) values (1)", want: "INSERT"},
		{sql: "WITH recent AS (SELECT 1) SELECT * FROM recent", want: "SELECT"},
		{sql: "(DELETE FROM payment_history WHERE id = 1)", want: "DELETE"},
		{sql: "", want: "UNKNOWN"},
		{sql: "CREATE TABLE payment_history (id BIGINT PRIMARY KEY)", want: "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := operationFromSQL(tt.sql); got != tt.want {
			t.Fatalf("operationFromSQL(%q) = %s, want %s", tt.sql, got, tt.want)
		}
	}
}
