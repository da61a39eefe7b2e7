/*
Package sqlmap binds declared operations to SQL statements. You declare
interfaces as tables of operations, each with one SQL template, and sqlmap
executes them over a pooled connection and shapes the result into the
declared return type.

# Declaring operations

	var UsersInterface = sqlmap.Interface{
	    Name: "Users",
	    Operations: []sqlmap.Operation{
	        {
	            Name:         "Create",
	            Insert:       `INSERT INTO users (name, email) VALUES (#{u.name}, #{u.email})`,
	            GeneratedKey: true,
	            Params:       []sqlmap.Param{{Name: "u", Type: sqlmap.TypeOf[User]()}},
	        },
	        {
	            Name:    "FindByID",
	            Query:   `SELECT id, name, email FROM users WHERE id = #{id}`,
	            Params:  []sqlmap.Param{{Name: "id", Type: sqlmap.TypeOf[int64]()}},
	            Returns: sqlmap.TypeOf[User](),
	        },
	    },
	}

Exactly one of Insert, Update, Delete and Query is set per operation.
Placeholders are #{param} or #{param.field}; every one must name a declared
parameter (Param.As overrides Param.Name), and field access must resolve on
the parameter's type. Violations fail registration, never a call.

# Result shapes

The declared return type of a query selects its shape:

  - nil: the query runs and nothing is returned.
  - map[string]any: the first row as column → value.
  - []map[string]any: every row as column → value.
  - a scalar (integers, floats, bool, string, time.Time): column 1 of row 1.
  - a slice of scalars: column 1 of every row, in result order.
  - anything else (usually a struct): the first row, one field per column.
  - a slice of anything else: one value per row, in result order.

Struct fields match columns by `db:"name"` tag first, then by
case-insensitive name; user_name also matches UserName. Types implementing
FieldWriter populate themselves instead. A column without a field is a
ConversionError. Empty results are an empty slice or map, or nil.

# Connections

Pool hands out Conn values wrapping *sql.Conn. Closing a Conn returns it to
the pool; the physical connection stays open until Release or Pool.Close.
The pool has no size limit and no acquire timeout.

# Error handling

  - Registration failures (RegistrationError) abort NewFactory, Open and Build.
  - Execution and connection failures are logged and the call returns a nil
    result, unless the factory is strict (WithStrict or strict=true).
  - Unknown operations, argument count mismatches, binding failures and
    ConversionError are always returned.

# Factories

Build(path) loads a key=value config (driver, url, user, password,
package), discovers the interfaces registered with RegisterPackage under
package, and caches the factory per path.
*/
package sqlmap
