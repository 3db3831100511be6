package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// Video uploads are the largest request bodies
const bodyLimit = 512 << 20

type APIServer struct {
	app           *fiber.App
	listenAddress string
}

func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:   "e-center-api",
			BodyLimit: bodyLimit,
		}),
		listenAddress: listenAddress,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	log.Println("Starting API Server")
	log.Printf("Listening on %s", s.listenAddress)

	return s.app.Listen(s.listenAddress)
}
