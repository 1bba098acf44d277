// Package auth provides authentication and authorization for the catalog.
//
// Users log in with a username and password; the session lives in an scs
// store on the catalog's SQLite database. Every request passes through
// Middleware.Handler, which loads the user and their permissions into the gin
// context. Routes are guarded with RequireAuth, RequirePermission and
// RequireStaff.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//
// # Usage
//
//	authService := auth.NewService(db.Users, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager)
//	router.Use(sessionManager.SessionLoadSave(), authMiddleware.Handler())
//	router.GET("/borrowed/", authMiddleware.RequirePermission(entities.PermissionMarkReturned), h)
package auth
