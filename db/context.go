package db

import (
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// ContextKey is where SetDBtoContext stores the handle on the gin context.
const ContextKey = "db"

// SetDBtoContext makes database available to handlers through DBInstance.
// Without a database nothing is stored and handlers see nil.
func SetDBtoContext(database *gorm.DB) gin.HandlerFunc {
	if database == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		c.Set(ContextKey, database)
		c.Next()
	}
}

func DBInstance(c *gin.Context) *gorm.DB {
	if v, ok := c.Get(ContextKey); ok {
		if database, ok := v.(*gorm.DB); ok {
			return database
		}
	}
	return nil
}
