package mysql

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"production-service/internal/domain"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

// translateError maps driver and gorm failures onto the domain taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, err)
	}
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, err)
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %v", domain.ErrConnectionUnavailable, err)
	}
	return err
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, gomysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.As(err, &opErr)
}
