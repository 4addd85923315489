package http

import "github.com/gin-gonic/gin"

// RegisterRecordRoutes registra las rutas HTTP para el catálogo de records.
func RegisterRecordRoutes(r *gin.Engine, handler *RecordHandler) {
	records := r.Group("/records")
	{
		records.POST("/", handler.CreateRecord)                 // Crear un record
		records.GET("/", handler.ListRecords)                   // Búsqueda filtrada
		records.GET("/analytics/searches", handler.SearchTrend) // Tendencia de búsquedas
		records.GET("/:id", handler.GetRecord)                  // Obtener por ID
		records.PUT("/:id", handler.UpdateRecord)               // Actualizar
		records.DELETE("/:id", handler.DeleteRecord)            // Eliminar
	}
}
