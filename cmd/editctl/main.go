package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/annel0/blockedit/internal/eventbus"
)

const (
	defaultServer = "http://localhost:8088"
	timeFormat    = "15:04:05"
)

func main() {
	var (
		server   = flag.String("server", envOr("BLOCKEDIT_SERVER", defaultServer), "адрес REST API editd")
		token    = flag.String("token", os.Getenv("BLOCKEDIT_TOKEN"), "токен оператора")
		operator = flag.String("operator", "", "оператор (login, history)")
		key      = flag.String("key", "", "ключ оператора (login)")
		natsURL  = flag.String("nats", envOr("BLOCKEDIT_NATS_URL", "nats://127.0.0.1:4222"), "адрес NATS (events)")
		stream   = flag.String("stream", "BLOCKEDIT", "стрим JetStream (events)")
		types    = flag.String("types", "", "типы событий через запятую (events)")
		limit    = flag.Int("limit", 20, "число записей (history)")
		raw      = flag.Bool("raw", false, "печатать ответ без форматирования")
	)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	c := &client{base: strings.TrimRight(*server, "/"), token: *token, http: &http.Client{Timeout: 30 * time.Second}}
	args := flag.Args()[1:]

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "login":
		err = login(c, *operator, *key)
	case "stats":
		err = stats(c)
	case "history":
		err = c.print(http.MethodGet, fmt.Sprintf("/api/history?limit=%d&operator=%s", *limit, url.QueryEscape(*operator)), nil, *raw)
	case "undo", "redo":
		err = c.print(http.MethodPost, "/api/history/"+cmd, nil, *raw)
	case "job":
		if len(args) != 1 {
			log.Fatalf("❌ Использование: editctl job <id>")
		}
		err = c.print(http.MethodGet, "/api/operations/"+args[0], nil, *raw)
	case "cancel":
		path := "/api/operations"
		if len(args) == 1 {
			path += "/" + args[0]
		}
		err = c.print(http.MethodDelete, path, nil, *raw)
	case "edit":
		// editctl edit set '{"pattern":"stone"}'
		if len(args) < 1 {
			log.Fatalf("❌ Использование: editctl edit <команда> [json]")
		}
		var body []byte
		if len(args) > 1 {
			body = []byte(args[1])
		}
		err = c.print(http.MethodPost, "/api/edit/"+args[0], body, *raw)
	case "biomes":
		page := "1"
		if len(args) == 1 {
			page = args[0]
		}
		err = c.print(http.MethodGet, "/api/biomes?page="+url.QueryEscape(page), nil, *raw)
	case "biome":
		// editctl biome [x z]
		path := "/api/biome"
		if len(args) == 2 {
			path += "?x=" + url.QueryEscape(args[0]) + "&z=" + url.QueryEscape(args[1])
		}
		err = c.print(http.MethodGet, path, nil, *raw)
	case "calc":
		expr, _ := json.Marshal(map[string]string{"expression": strings.Join(args, " ")})
		err = calc(c, expr)
	case "events":
		err = tailEvents(*natsURL, *stream, parseList(*types))
	default:
		fmt.Fprintf(os.Stderr, "❌ Неизвестная команда: %s\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `editctl - клиент редактора блоков

Использование: editctl [флаги] <команда> [аргументы]

Команды:
  login                    получить токен (-operator, -key)
  stats                    состояние узла
  history                  архив транзакций (-operator, -limit)
  undo | redo              отмена и повтор
  edit <команда> [json]    команда правки, например edit set '{"pattern":"stone"}'
  job <id> | cancel [id]   фоновые операции
  biomes [страница]        список биомов
  biome [x z]              биомы колонки или выделения
  calc <формула>           вычислить формулу
  events                   события шины JetStream в реальном времени (-types)

Флаги:`)
	flag.PrintDefaults()
}

type client struct {
	base  string
	token string
	http  *http.Client
}

// call выполняет запрос и возвращает тело ответа. Статус >= 400 становится ошибкой
// с кодом и сообщением из тела.
func (c *client) call(method, path string, body []byte) ([]byte, int, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка запроса %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = gjson.GetBytes(data, "error").String()
		}
		code := gjson.GetBytes(data, "error.code").String()
		return data, resp.StatusCode, fmt.Errorf("%d %s: %s", resp.StatusCode, code, msg)
	}
	return data, resp.StatusCode, nil
}

func (c *client) print(method, path string, body []byte, raw bool) error {
	data, status, err := c.call(method, path, body)
	if err != nil {
		return err
	}
	if status == http.StatusAccepted {
		fmt.Printf("⏳ Операция %s поставлена в очередь: %s\n",
			gjson.GetBytes(data, "data.label"), gjson.GetBytes(data, "data.job_id"))
		return nil
	}
	out := gjson.GetBytes(data, "data").Raw
	if out == "" {
		out = "null"
	}
	if raw {
		fmt.Println(out)
		return nil
	}
	os.Stdout.Write(pretty.Color(pretty.Pretty([]byte(out)), nil))
	return nil
}

func login(c *client, operator, key string) error {
	if operator == "" || key == "" {
		return fmt.Errorf("нужны -operator и -key")
	}
	body, _ := json.Marshal(map[string]string{"operator": operator, "key": key})
	data, _, err := c.call(http.MethodPost, "/api/token", body)
	if err != nil {
		return err
	}
	exp := gjson.GetBytes(data, "data.expires_at").Time()
	fmt.Fprintf(os.Stderr, "🔐 Токен оператора %s, истекает %s\n", operator, humanize.Time(exp))
	fmt.Println(gjson.GetBytes(data, "data.token").String())
	return nil
}

func stats(c *client) error {
	data, _, err := c.call(http.MethodGet, "/api/stats", nil)
	if err != nil {
		return err
	}
	d := gjson.GetBytes(data, "data")
	fmt.Printf("🧱 Узел %s, мир %s, работает %s\n", d.Get("node"), d.Get("world"), d.Get("uptime"))
	fmt.Printf("   Память: %s, CPU: %.1f%%\n",
		humanize.IBytes(uint64(d.Get("memory_mb").Float()*1024*1024)), d.Get("cpu_percent").Float())
	fmt.Printf("   Сессий: %d %v\n", d.Get("sessions").Int(), d.Get("operators").Array())
	fmt.Printf("   В очереди: %d (срез %s блоков)\n",
		d.Get("queued_jobs").Int(), humanize.Comma(d.Get("slice_budget").Int()))
	if bus := d.Get("eventbus"); bus.Exists() {
		fmt.Printf("   Шина: опубликовано %s, доставлено %s, потеряно %s\n",
			humanize.Comma(bus.Get("Published").Int()), humanize.Comma(bus.Get("Consumed").Int()),
			humanize.Comma(bus.Get("Dropped").Int()))
	}
	return nil
}

func calc(c *client, body []byte) error {
	data, _, err := c.call(http.MethodPost, "/api/calc", body)
	if err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", gjson.GetBytes(data, "data.expression"), gjson.GetBytes(data, "data.result"))
	return nil
}

// tailEvents печатает новые события шины до Ctrl+C
func tailEvents(natsURL, stream string, types []string) error {
	bus, err := eventbus.NewJetStreamBus(natsURL, stream, 24*time.Hour)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var count atomic.Int64
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: types}, func(_ context.Context, ev *eventbus.Envelope) {
		count.Add(1)
		fmt.Printf("[%s] %s [%s] %s\n", ev.Timestamp.Local().Format(timeFormat), ev.Source, ev.EventType, ev.ID)
		fmt.Printf("  %s\n", gjson.ParseBytes(ev.Payload).Raw)
	})
	if err != nil {
		return err
	}
	fmt.Printf("🎬 Слежение за событиями %s (Ctrl+C для выхода)\n", stream)
	<-ctx.Done()
	sub.Unsubscribe()
	fmt.Printf("\n📊 Получено событий: %d\n", count.Load())
	return nil
}

// parseList разбирает строку с разделителями-запятыми
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
