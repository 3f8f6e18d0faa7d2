package routes

import (
	rbac "github.com/bohemiyan/tenant-rbac"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) listRoles(c *fiber.Ctx) error {
	roles, err := h.rbac.Store().ListRoles(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Roles retrieved successfully", roles)
}

func (h *Handler) listPermissions(c *fiber.Ctx) error {
	perms, err := h.rbac.Store().ListPermissions(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Permissions retrieved successfully", perms)
}

func (h *Handler) createPermission(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req CreatePermissionRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	perm, err := h.rbac.CreatePermission(c.UserContext(), userID, req.Name)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Permission created successfully", perm)
}

func (h *Handler) deletePermission(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.rbac.DeletePermission(c.UserContext(), userID, c.Params("name")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Permission deleted successfully", nil)
}

func (h *Handler) setRolePermissions(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req RolePermissionsRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	if err := h.rbac.SetRolePermissions(c.UserContext(), userID, id, req.Permissions); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Role permissions updated successfully", fiber.Map{
		"role_id":     id,
		"permissions": req.Permissions,
	})
}

func (h *Handler) assignUserRole(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req UserRoleRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	if err := h.rbac.AssignRole(c.UserContext(), userID, id, req.Role); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "User role updated successfully", fiber.Map{
		"user_id": id,
		"role":    req.Role,
	})
}

func (h *Handler) bulkAssignRoles(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req BulkRoleRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	if err := h.rbac.BulkAssignRoles(c.UserContext(), userID, req.Assignments); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "User roles updated successfully", fiber.Map{
		"updated": len(req.Assignments),
	})
}

func (h *Handler) bulkCheck(c *fiber.Ctx) error {
	var req BulkCheckRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	results := h.rbac.CheckBulkPermissions(c.UserContext(), req.Checks)

	out := make([]fiber.Map, 0, len(results))
	for _, r := range results {
		item := fiber.Map{"user_id": r.UserID, "permission": r.Permission, "allowed": r.Allowed}
		if r.Error != nil {
			item["error"] = r.Error.Error()
		}
		out = append(out, item)
	}
	return respond(c, fiber.StatusOK, "Permissions checked successfully", out)
}

func (h *Handler) listAuditLogs(c *fiber.Ctx) error {
	var f rbac.AuditFilter
	f.ActorUserID = uint(max(c.QueryInt("actor_user_id"), 0))
	f.TargetType = c.Query("target_type")
	f.TargetID = uint(max(c.QueryInt("target_id"), 0))
	f.Action = c.Query("action")
	f.Limit = c.QueryInt("limit", 100)

	logs, err := h.rbac.Store().ListAuditLogs(c.UserContext(), f)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Audit logs retrieved successfully", logs)
}

func (h *Handler) cacheStats(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, "Cache statistics retrieved successfully", h.rbac.Cache().Stats())
}
