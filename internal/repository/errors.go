package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示插入或更新的数据违反了唯一约束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")

	// 具体实体的未找到，都能被 errors.Is(err, ErrNotFound) 识别
	ErrUserNotFound  = fmt.Errorf("%w: user", ErrNotFound)
	ErrBoardNotFound = fmt.Errorf("%w: board", ErrNotFound)
)

// MySQL的 "Duplicate entry" 错误号
const mysqlDuplicateEntry = 1062

// translateError 把gorm/驱动层的错误翻译成仓库层的错误，其余原样返回
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if IsDuplicateEntry(err) {
		return ErrDuplicateEntry
	}
	return err
}

// translateLookup 和 translateError 一样，只是把未找到换成具体实体的哨兵错误
func translateLookup(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return translateError(err)
}

// IsDuplicateEntry 判断是不是唯一键冲突，consumer也要用它来判断幂等
func IsDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateEntry) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
