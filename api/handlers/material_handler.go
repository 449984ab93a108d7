package handlers

import (
	"net/http"
	"strings"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/gin-gonic/gin"
)

// CreateMaterial registers a raw material
func (h *Handler) CreateMaterial(c *gin.Context) {
	var material models.RawMaterial
	if err := c.ShouldBindJSON(&material); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate material type
	if material.Name == "" || !models.IsValidMaterialType(material.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "material needs a name and a type of PAPER or INK"})
		return
	}
	material.Type = strings.ToUpper(material.Type)

	if err := h.Store.AddMaterial(c.Request.Context(), &material); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, material)
}

// GetMaterials returns all raw materials
func (h *Handler) GetMaterials(c *gin.Context) {
	c.JSON(http.StatusOK, h.Node.GetFSM().GetMaterials())
}

// GetLowMaterials returns raw materials below the low-stock threshold
func (h *Handler) GetLowMaterials(c *gin.Context) {
	low := make([]*models.RawMaterial, 0)
	for _, material := range h.Node.GetFSM().GetMaterials() {
		if material.CurrentLevel < h.Stock.Threshold() {
			low = append(low, material)
		}
	}
	c.JSON(http.StatusOK, gin.H{"threshold": h.Stock.Threshold(), "materials": low})
}

type levelInput struct {
	Level *float64 `json:"level" binding:"required"`
}

// SetMaterialLevel overwrites a material level after a restock or count
func (h *Handler) SetMaterialLevel(c *gin.Context) {
	var input levelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	materialID := c.Param("id")
	if err := h.Store.SetMaterialLevel(c.Request.Context(), materialID, *input.Level); err != nil {
		abortWithError(c, err)
		return
	}

	material, _ := h.Node.GetFSM().GetMaterial(materialID)
	c.JSON(http.StatusOK, material)
}

type recipeInput struct {
	ServiceType      string  `json:"service_type" binding:"required"`
	RawMaterialID    string  `json:"raw_material_id" binding:"required"`
	QuantityRequired float64 `json:"quantity_required" binding:"gt=0"`
}

// CreateRecipe adds a consumption rule for a service type
func (h *Handler) CreateRecipe(c *gin.Context) {
	var input recipeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe := &models.ProductionRecipe{
		ServiceType:      input.ServiceType,
		RawMaterialID:    input.RawMaterialID,
		QuantityRequired: input.QuantityRequired,
	}
	if err := h.Store.AddRecipe(c.Request.Context(), recipe); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Recipe Rule Added", "recipe": recipe})
}

// GetRecipes returns recipe rules, optionally filtered by service_type
func (h *Handler) GetRecipes(c *gin.Context) {
	recipes := h.Node.GetFSM().GetRecipes(c.Query("service_type"))
	if recipes == nil {
		recipes = []*models.ProductionRecipe{}
	}
	c.JSON(http.StatusOK, recipes)
}
