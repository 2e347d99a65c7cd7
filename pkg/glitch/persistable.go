package glitch

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/projectglitch/glitch/internal/logger"
	_ "modernc.org/sqlite"
)

var db *sql.DB

// Persistable is implemented by anything that can be stored in the local
// sqlite database. Column mapping comes from struct tags:
//
//	column:"name"  dbtype:"TEXT NOT NULL"  primary:"true"  index:"true"
//
// Fields without a dbtype tag are not persisted.
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() any
	SetPrimaryKey(any) error
	BeforeSave() error
}

// GetDB lazily opens the configured sqlite database.
func GetDB() (*sql.DB, error) {
	if db == nil {
		var err error
		db, err = sql.Open("sqlite", Config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err = db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Database initialized", Config.DBPath)
	}
	return db, nil
}

// CloseDatabase closes the connection. Tests call this between temp databases.
func CloseDatabase() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// CreateTable creates the table and indexes for the given persistable object
func CreateTable(obj Persistable) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)
	logger.Debug("Creating table with SQL", createSQL)

	if _, err := d.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	for _, query := range generateIndexSQL(obj, tableName) {
		logger.Debug("Creating index with SQL", query)
		if _, err := d.Exec(query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

// generateCreateTableSQL generates CREATE TABLE SQL from struct tags
func generateCreateTableSQL(obj any, tableName string) string {
	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	var columns []string
	var primaryKeys []string

	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() {
			continue
		}
		dbType := field.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}
		columnName := columnNameFor(field)
		if field.Tag.Get("primary") == "true" {
			primaryKeys = append(primaryKeys, columnName)
		}
		columns = append(columns, fmt.Sprintf("%s %s", columnName, dbType))
	}

	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(columns, ", "))
}

// generateIndexSQL generates index creation SQL from struct tags
func generateIndexSQL(obj any, tableName string) []string {
	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	var indexSQL []string
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if field.Tag.Get("index") == "" {
			continue
		}
		columnName := columnNameFor(field)
		indexName := fmt.Sprintf("idx_%s_%s", tableName, columnName)
		indexSQL = append(indexSQL, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, tableName, columnName))
	}
	return indexSQL
}

func columnNameFor(field reflect.StructField) string {
	if name := field.Tag.Get("column"); name != "" {
		return name
	}
	return strings.ToLower(field.Name)
}

// Save persists the object, replacing any existing row with the same key.
func Save(obj Persistable) error {
	d, err := GetDB()
	if err != nil {
		return err
	}
	return saveWith(d, obj)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func saveWith(e execer, obj Persistable) error {
	if err := obj.BeforeSave(); err != nil {
		return fmt.Errorf("before save hook failed: %w", err)
	}

	tableName := obj.GetTableName()
	columns, placeholders, values := getInsertData(obj)

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if _, err := e.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to save into %s: %w", tableName, err)
	}
	return nil
}

// BulkSave saves multiple objects in a single transaction.
func BulkSave(objects []Persistable) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, obj := range objects {
		if err := saveWith(tx, obj); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// getInsertData extracts column names, placeholders, and values for INSERT
func getInsertData(obj any) ([]string, []string, []any) {
	objValue := reflect.ValueOf(obj)
	objType := reflect.TypeOf(obj)
	if objValue.Kind() == reflect.Ptr {
		objValue = objValue.Elem()
		objType = objType.Elem()
	}

	var columns []string
	var placeholders []string
	var values []any

	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() || field.Tag.Get("dbtype") == "" {
			continue
		}
		columns = append(columns, columnNameFor(field))
		placeholders = append(placeholders, "?")
		values = append(values, objValue.Field(i).Interface())
	}
	return columns, placeholders, values
}

// Exists checks whether a row with the object's primary key is present.
func Exists(obj Persistable) (bool, error) {
	d, err := GetDB()
	if err != nil {
		return false, err
	}

	tableName := obj.GetTableName()
	whereClause, values := primaryKeyWhere(obj)

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, whereClause)
	if err := d.QueryRow(query, values...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}
	return count > 0, nil
}

// Delete removes the object's row.
func Delete(obj Persistable) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	whereClause, values := primaryKeyWhere(obj)

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, whereClause)
	if _, err := d.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}
	return nil
}

// FindByPrimaryKey loads the row with the given key into obj.
func FindByPrimaryKey(obj Persistable, primaryKey any) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	columns, destinations := getSelectData(obj)
	pkColumns := getPrimaryKeyColumns(obj)
	if len(pkColumns) != 1 {
		return fmt.Errorf("table %s does not have a single-column primary key", tableName)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		strings.Join(columns, ", "), tableName, pkColumns[0])

	err = d.QueryRow(query, primaryKey).Scan(destinations...)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("record %v not found in %s", primaryKey, tableName)
		}
		return fmt.Errorf("failed to scan row from %s: %w", tableName, err)
	}
	return nil
}

// FindAll retrieves every row of the object's table, optionally ordered.
func FindAll(obj Persistable, orderBy string) ([]any, error) {
	query := fmt.Sprintf("SELECT %%s FROM %s", obj.GetTableName())
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	return queryInto(obj, query)
}

// FindWhere executes a custom WHERE query against the object's table.
func FindWhere(obj Persistable, whereClause string, args ...any) ([]any, error) {
	query := fmt.Sprintf("SELECT %%s FROM %s WHERE %s", obj.GetTableName(), whereClause)
	return queryInto(obj, query, args...)
}

// queryInto runs a select (with a %s placeholder for the column list) and
// scans each row into a fresh instance of obj's type.
func queryInto(obj Persistable, queryFormat string, args ...any) ([]any, error) {
	d, err := GetDB()
	if err != nil {
		return nil, err
	}

	tableName := obj.GetTableName()
	columns, _ := getSelectData(obj)
	query := fmt.Sprintf(queryFormat, strings.Join(columns, ", "))
	logger.Debug("Query SQL", query)

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	var results []any
	for rows.Next() {
		newObj := reflect.New(objType).Interface()
		_, destinations := getSelectData(newObj)
		if err := rows.Scan(destinations...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, newObj)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

// getSelectData extracts column names and scan destinations for SELECT
func getSelectData(obj any) ([]string, []any) {
	objValue := reflect.ValueOf(obj)
	objType := reflect.TypeOf(obj)
	if objValue.Kind() == reflect.Ptr {
		objValue = objValue.Elem()
		objType = objType.Elem()
	}

	var columns []string
	var destinations []any

	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() || field.Tag.Get("dbtype") == "" {
			continue
		}
		columns = append(columns, columnNameFor(field))
		destinations = append(destinations, objValue.Field(i).Addr().Interface())
	}
	return columns, destinations
}

func getPrimaryKeyColumns(obj any) []string {
	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	var primaryKeys []string
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if field.Tag.Get("primary") == "true" {
			primaryKeys = append(primaryKeys, columnNameFor(field))
		}
	}
	return primaryKeys
}

func primaryKeyWhere(obj Persistable) (string, []any) {
	columns := getPrimaryKeyColumns(obj)
	conditions := make([]string, 0, len(columns))
	var values []any
	pk := obj.GetPrimaryKey()
	for _, column := range columns {
		conditions = append(conditions, fmt.Sprintf("%s = ?", column))
		values = append(values, pk)
	}
	return strings.Join(conditions, " AND "), values
}
