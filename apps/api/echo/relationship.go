package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core/authz"
	"github.com/trezcool/sundayschool/core/relationship"
	"github.com/trezcool/sundayschool/core/user"
)

type relationshipApi struct {
	svc      relationship.ServiceInterface
	validate *validator.Validate
}

func registerRelationshipAPI(g *echo.Group, auth []echo.MiddlewareFunc, opts *Options) {
	api := relationshipApi{svc: opts.RelationshipSvc, validate: opts.Validate}

	rg := g.Group("/relationships", auth...)
	rg.GET("", api.query, authorize(authz.Relationships, authz.Read))
	rg.POST("", api.create, authorize(authz.Relationships, authz.Create))

	// detail endpoints
	rg.PUT("/:id", api.update, authorize(authz.Relationships, authz.Update))
	rg.DELETE("/:id", api.destroy, authorize(authz.Relationships, authz.Delete))
}

// Handlers

// query returns the family of ?userId=, or every relationship when it is omitted.
func (api *relationshipApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	userID := ctx.QueryParam("userId")
	if userID == "" {
		if !authz.CanAccess(usr.Role, authz.RelationshipsAll, authz.Read) {
			return relationship.ErrFamilyForbidden
		}
		rels, err := api.svc.QueryAll(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "querying relationships")
		}
		if rels == nil {
			rels = []relationship.Relationship{}
		}
		return ctx.JSON(http.StatusOK, rels)
	}

	targetID, err := strconv.Atoi(userID)
	if err != nil {
		return user.ErrNotFound
	}
	family, err := api.svc.Family(ctx.Request().Context(), usr, targetID)
	if err != nil {
		return errors.Wrap(err, "querying family")
	}
	return ctx.JSON(http.StatusOK, family)
}

func (api *relationshipApi) create(ctx echo.Context) error {
	var data relationship.NewRelationship
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRelationship")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rel, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating relationship")
	}
	return ctx.JSON(http.StatusCreated, rel)
}

func (api *relationshipApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return relationship.ErrNotFound
	}

	var data relationship.UpdateRelationship
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRelationship")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rel, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating relationship")
	}
	return ctx.JSON(http.StatusOK, rel)
}

func (api *relationshipApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return relationship.ErrNotFound
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting relationship")
	}
	return ctx.NoContent(http.StatusNoContent)
}
