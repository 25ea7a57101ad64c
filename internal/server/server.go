package server

import (
	"context"
	"net/http"

	"asapshop-backend/internal/config"
	"asapshop-backend/internal/handler"
	mw "asapshop-backend/internal/middleware"
	"asapshop-backend/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services are the collaborators the HTTP layer dispatches to.
type Services struct {
	Catalog  service.CatalogService
	Coupons  service.CouponService
	Accounts service.AccountService
	Payments service.PaymentService
	Notifier service.Notifier
	Tokens   mw.TokenParser
}

type Server struct {
	echo *echo.Echo
	cfg  *config.Config
	log  *zap.Logger

	productHandler *handler.ProductHandler
	couponHandler  *handler.CouponHandler
	userHandler    *handler.UserHandler
	paymentHandler *handler.PaymentHandler
	contactHandler *handler.ContactHandler

	requireUser  echo.MiddlewareFunc
	requireAdmin echo.MiddlewareFunc
}

func NewServer(cfg *config.Config, svc Services, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(mw.Metrics())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"auth-token",
		},
	}))
	e.Use(middleware.BodyLimit(cfg.HTTP.BodyLimit))

	s := &Server{
		echo:           e,
		cfg:            cfg,
		log:            log,
		productHandler: handler.NewProductHandler(svc.Catalog),
		couponHandler:  handler.NewCouponHandler(svc.Coupons),
		userHandler:    handler.NewUserHandler(svc.Accounts),
		paymentHandler: handler.NewPaymentHandler(svc.Payments, log),
		contactHandler: handler.NewContactHandler(svc.Notifier, log),
		requireUser:    mw.Auth(svc.Tokens),
		requireAdmin:   mw.RequireAdmin(svc.Accounts),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	e := s.echo
	user := s.requireUser
	admin := []echo.MiddlewareFunc{s.requireUser, s.requireAdmin}

	e.GET("/", s.banner)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.Static("/images", s.cfg.HTTP.ImagesDir)

	// -------- users --------
	users := e.Group("/users")
	users.POST("/signup", s.userHandler.Signup)
	users.POST("/confirm", s.userHandler.Confirm)
	users.POST("/login", s.userHandler.Login)
	users.POST("/getuser", s.userHandler.GetUser, user)
	users.PUT("/updateuser", s.userHandler.UpdateUser, user)
	users.POST("/addtocart", s.userHandler.AddToCart, user)
	users.POST("/removefromcart", s.userHandler.RemoveFromCart, user)
	users.POST("/getcart", s.userHandler.GetCart, user)
	users.POST("/finalizarcompra", s.userHandler.Checkout, user)
	users.POST("/historico", s.userHandler.History, user)
	users.GET("/getallpedidos", s.userHandler.AllOrders, admin...)
	users.PATCH("/updatepedido/:id", s.userHandler.UpdateOrderStatus, admin...)
	users.GET("/getall", s.userHandler.AllUsers, admin...)
	users.DELETE("/admin/clear-historico/:userId", s.userHandler.ClearHistory, admin...)
	users.DELETE("/admin/delete-pedido/:userId/:pedidoId", s.userHandler.DeleteHistoryEntry, admin...)

	// -------- products --------
	products := e.Group("/products")
	products.GET("/allproducts", s.productHandler.AllProducts)
	products.POST("/addproduct", s.productHandler.AddProduct, admin...)
	products.POST("/updateproduct", s.productHandler.UpdateProduct, admin...)
	products.POST("/removeproduct", s.productHandler.RemoveProduct, admin...)
	products.POST("/toggleDropAvailable", s.productHandler.ToggleDropAvailable, admin...)
	products.POST("/updatedropdates", s.productHandler.UpdateDropDates, admin...)
	products.POST("/toggleavailable", s.productHandler.ToggleAvailable, admin...)

	// -------- coupons --------
	coupons := e.Group("/coupons")
	coupons.POST("/validarcupom", s.couponHandler.ValidateCoupon)
	coupons.POST("/addcoupon", s.couponHandler.AddCoupon, admin...)
	coupons.GET("/allcoupons", s.couponHandler.AllCoupons, admin...)
	coupons.PATCH("/cupomstatus/:id", s.couponHandler.SetCouponStatus, admin...)
	coupons.DELETE("/removercupom/:id", s.couponHandler.RemoveCoupon, admin...)

	e.POST("/email/send-email", s.contactHandler.SendEmail)

	// -------- mercado pago --------
	pagamento := e.Group("/pagamento")
	pagamento.POST("/criar-pagamento", s.paymentHandler.CreatePreference, user)
	pagamento.POST("/pagar-cartao-direto", s.paymentHandler.PayWithCard, user)
	pagamento.POST("/processar-pedido-imediato", s.paymentHandler.ProcessImmediate, user)
	pagamento.GET("/status-payment/:paymentId", s.paymentHandler.PaymentStatus)
	pagamento.GET("/webhook-events", s.paymentHandler.WebhookEvents, admin...)
	pagamento.POST("/mp/webhook", s.paymentHandler.Webhook)

	pix := e.Group("/pix")
	pix.POST("/pagar-pix", s.paymentHandler.CreatePixPreference, user)
	pix.POST("/gerar-pix-direto", s.paymentHandler.CreatePixPayment, user)
	pix.GET("/status-payment/:paymentId", s.paymentHandler.PixStatus)
	e.Any("/pagar-pix", func(c echo.Context) error {
		return c.Redirect(http.StatusTemporaryRedirect, "/pix/pagar-pix")
	})

	// -------- gateway back_urls --------
	frontend := s.cfg.Frontend()
	e.GET("/success", handler.CheckoutRedirect(frontend, "sucesso"))
	e.GET("/failure", handler.CheckoutRedirect(frontend, "falha"))
	e.GET("/pending", handler.CheckoutRedirect(frontend, "pendente"))
}

func (s *Server) banner(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "ASAP Shop API",
		"routes": []string{
			"/users", "/products", "/coupons", "/email",
			"/pagamento", "/pix", "/images", "/healthz", "/metrics",
		},
	})
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	s.log.Info("http server listening", zap.String("addr", address))
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
