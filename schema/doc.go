// Package schema describes resolved table and column metadata.
//
// A Table is an ordered list of columns with an optional alias. Each Column
// carries its SQL name, field key, semantic Type, nullability, primary-key flag
// and default, and knows how to encode Go values for the driver and decode raw
// driver values back:
//
//	users := schema.NewTable("users",
//	    schema.Integer("id").PrimaryKey(),
//	    schema.Text("name").NotNull(),
//	    schema.IntBoolean("verified").NotNull().Default(false),
//	    schema.JSON("tags"),
//	    schema.UnixTime("created_at"), // field key "createdAt"
//	)
//
//	parent := schema.Alias(users, "parent")
//
// # Field Types
//
//	schema.Integer("n")        // int64
//	schema.Real("price")       // float64
//	schema.Numeric("amount")   // string
//	schema.Text("name")        // string
//	schema.Boolean("active")   // bool, native
//	schema.IntBoolean("flag")  // bool, stored as 0/1
//	schema.Timestamp("at")     // time.Time, native
//	schema.UnixTime("at")      // time.Time, stored as seconds
//	schema.UnixTimeMilli("at") // time.Time, stored as milliseconds
//	schema.JSON("meta")        // any, stored as JSON text
//	schema.Blob("data")        // []byte
//	schema.UUID("id")          // uuid.UUID
//
// Table definitions can be checked with ValidateTable and ValidateSchema.
package schema
