package endpoint

import (
	"errors"

	"github.com/ariebrainware/physio-pain-assessment/catalog"
	"github.com/ariebrainware/physio-pain-assessment/middleware"
	"github.com/ariebrainware/physio-pain-assessment/util"
	"github.com/gin-gonic/gin"
)

type regionResponse struct {
	ID string `json:"id"`
	catalog.Mapping
}

// ListRegions godoc
// @Summary      List anatomical regions
// @Tags         Catalog
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]regionResponse} "Regions retrieved"
// @Router       /api/regions [get]
func ListRegions(c *gin.Context) {
	regions := middleware.GetRegions(c)
	out := make([]regionResponse, 0, regions.Len())
	for _, id := range regions.IDs() {
		m, _ := regions.Lookup(id)
		out = append(out, regionResponse{ID: id, Mapping: m})
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Regions retrieved", Data: out})
}

// GetRegion godoc
// @Summary      Look up a region
// @Tags         Catalog
// @Produce      json
// @Param        id path string true "Region ID"
// @Success      200 {object} util.APIResponse{data=regionResponse} "Region retrieved"
// @Failure      404 {object} util.APIResponse "Region not found"
// @Router       /api/regions/{id} [get]
func GetRegion(c *gin.Context) {
	id := c.Param("id")
	m, ok := middleware.GetRegions(c).Lookup(id)
	if !ok {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Region not found", Err: errors.New("unknown region id")})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Region retrieved", Data: regionResponse{ID: id, Mapping: m}})
}

// ListMovementTests godoc
// @Summary      List movement tests
// @Description  All tests, or only those targeting at least one of the given regions
// @Tags         Catalog
// @Produce      json
// @Param        region query []string false "Region IDs" collectionFormat(multi)
// @Success      200 {object} util.APIResponse{data=[]catalog.MovementTest} "Movement tests retrieved"
// @Router       /api/movement-tests [get]
func ListMovementTests(c *gin.Context) {
	tests := middleware.GetMovementTests(c)
	regions, filtered := c.GetQueryArray("region")
	if !filtered {
		util.CallSuccessOK(c, util.APISuccessParams{Msg: "Movement tests retrieved", Data: tests.All()})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Movement tests retrieved", Data: tests.TestsForRegions(regions)})
}

// GetMovementTest godoc
// @Summary      Look up a movement test
// @Tags         Catalog
// @Produce      json
// @Param        id path string true "Test ID"
// @Success      200 {object} util.APIResponse{data=catalog.MovementTest} "Movement test retrieved"
// @Failure      404 {object} util.APIResponse "Movement test not found"
// @Router       /api/movement-tests/{id} [get]
func GetMovementTest(c *gin.Context) {
	t, ok := middleware.GetMovementTests(c).ByID(c.Param("id"))
	if !ok {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Movement test not found", Err: errors.New("unknown test id")})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Movement test retrieved", Data: t})
}
