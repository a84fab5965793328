package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleがADMINかどうかを確認します。

func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//ADMINだけ許可
			if role != RoleAdmin {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "admin only", Kind: "FORBIDDEN"})
			}

			return next(c)
		}
	}
}

// 管理者用のミドルウェア一式
func AdminOnly(secret string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{AuthJWT(secret), AdminRoleGuard()}
}
