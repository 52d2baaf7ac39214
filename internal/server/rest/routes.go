package rest

func (s *HTTPServer) routes() {
	app := s.app

	app.Post("/register", s.register)
	app.Post("/login", s.login)
	app.Get("/logout", s.logout)
	app.Get("/loggedIn", s.loggedIn)
	app.Post("/forgotPassword", s.forgotPassword)
	app.Post("/resetPassword/:resetToken", s.resetPassword)
	app.Get("/completeRegistration/:token", s.completeRegistration)

	app.Get("/getuser", s.protect, s.getUser)
	app.Patch("/updateUser", s.protect, s.updateUser)
	app.Patch("/changePassword", s.protect, s.changePassword)

	app.Get("/admingetuser/:id", s.protect, s.adminOnly, s.adminGetUser)
	app.Get("/pendingUsers", s.protect, s.adminOnly, s.pendingUsers)
	app.Get("/approvedUsers", s.protect, s.adminOnly, s.approvedUsers)
	app.Put("/approve/:token", s.protect, s.adminOnly, s.approve)
}
