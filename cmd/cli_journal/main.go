package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dream-journal/internal/app"
	"dream-journal/internal/config"
	"dream-journal/internal/domain"
	"dream-journal/internal/service"
)

type journal struct {
	app     *app.App
	reader  *bufio.Reader
	session domain.Session
}

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	j := &journal{app: a, reader: bufio.NewReader(os.Stdin)}
	for {
		fmt.Println("\n===== Diario de Sueños =====")
		if j.session.Authenticated() {
			fmt.Printf("Sesion: %s\n", j.session.Email)
		} else {
			fmt.Println("Sesion: local")
		}
		fmt.Println("[1] Listar sueños")
		fmt.Println("[2] Nuevo sueño")
		fmt.Println("[3] Ver sueño")
		fmt.Println("[4] Editar sueño")
		fmt.Println("[5] Borrar sueño")
		fmt.Println("[6] Estadisticas")
		fmt.Println("[7] Recordatorio")
		fmt.Println("[8] Iniciar sesion / Registrarse")
		fmt.Println("[9] Cerrar sesion")
		fmt.Println("[0] Salir")
		fmt.Print("Opcion: ")

		var err error
		switch j.prompt("") {
		case "1":
			err = j.list(ctx)
		case "2":
			err = j.add(ctx)
		case "3":
			err = j.view(ctx)
		case "4":
			err = j.edit(ctx)
		case "5":
			err = j.remove(ctx)
		case "6":
			err = j.stats(ctx)
		case "7":
			err = j.reminder(ctx)
		case "8":
			err = j.signIn(ctx)
		case "9":
			j.session = domain.Session{}
			fmt.Println("Sesion cerrada.")
		case "0":
			return
		default:
			fmt.Println("Opcion invalida.")
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func (j *journal) prompt(label string) string {
	if label != "" {
		fmt.Print(label)
	}
	line, _ := j.reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// promptDefault devuelve current si el usuario deja la línea vacía.
func (j *journal) promptDefault(label, current string) string {
	if current != "" {
		label = fmt.Sprintf("%s [%s]: ", label, current)
	} else {
		label += ": "
	}
	if v := j.prompt(label); v != "" {
		return v
	}
	return current
}

func (j *journal) list(ctx context.Context) error {
	dreams, err := j.app.Dreams.List(ctx)
	if err != nil {
		return err
	}
	if len(dreams) == 0 {
		fmt.Println("Todavia no hay sueños registrados.")
		return nil
	}
	for _, d := range dreams {
		lucid := ""
		if d.IsLucid {
			lucid = " (lucido)"
		}
		fmt.Printf("[%d] %s  %s%s\n", d.ID, d.Date, d.Title, lucid)
	}
	return nil
}

func (j *journal) add(ctx context.Context) error {
	d, err := j.fillDream(domain.Dream{
		Date:      domain.DateOf(time.Now()),
		StartTime: domain.NewTimeOfDay(23, 0),
		EndTime:   domain.NewTimeOfDay(7, 0),
	})
	if err != nil {
		return err
	}
	saved, err := j.app.Dreams.Add(ctx, j.session, d)
	if err != nil {
		return err
	}
	fmt.Printf("Sueño guardado con ID %d.\n", saved.ID)
	return nil
}

func (j *journal) view(ctx context.Context) error {
	d, err := j.selectDream(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s  (%s)\n", strings.ToUpper(d.Title), d.Date)
	fmt.Printf("De %s a %s, duracion %s\n", d.StartTime, d.EndTime, service.FormatDuration(d.Duration()))
	if d.IsLucid {
		fmt.Println("Sueño lucido")
	}
	if len(d.Tags) > 0 {
		fmt.Printf("Etiquetas: %s\n", strings.Join(d.Tags, ", "))
	}
	fmt.Printf("\n%s\n", d.Content)
	return nil
}

func (j *journal) edit(ctx context.Context) error {
	d, err := j.selectDream(ctx)
	if err != nil {
		return err
	}
	d, err = j.fillDream(d)
	if err != nil {
		return err
	}
	if _, err := j.app.Dreams.Update(ctx, j.session, d); err != nil {
		return err
	}
	fmt.Println("Sueño actualizado.")
	return nil
}

func (j *journal) remove(ctx context.Context) error {
	d, err := j.selectDream(ctx)
	if err != nil {
		return err
	}
	if !strings.EqualFold(j.prompt(fmt.Sprintf("Borrar %q? [s/N]: ", d.Title)), "s") {
		return nil
	}
	if err := j.app.Dreams.Delete(ctx, j.session, d.ID); err != nil {
		return err
	}
	fmt.Println("Sueño borrado.")
	return nil
}

func (j *journal) selectDream(ctx context.Context) (domain.Dream, error) {
	id, err := strconv.ParseInt(j.prompt("ID del sueño: "), 10, 64)
	if err != nil {
		return domain.Dream{}, errors.New("invalid dream id")
	}
	return j.app.Dreams.Get(ctx, id)
}

// fillDream pide cada campo ofreciendo el valor actual de d como predeterminado.
func (j *journal) fillDream(d domain.Dream) (domain.Dream, error) {
	date, err := domain.ParseDate(j.promptDefault("Fecha (AAAA-MM-DD)", d.Date.String()))
	if err != nil {
		return d, err
	}
	start, err := domain.ParseTimeOfDay(j.promptDefault("Hora de inicio (HH:MM)", d.StartTime.String()))
	if err != nil {
		return d, err
	}
	end, err := domain.ParseTimeOfDay(j.promptDefault("Hora de fin (HH:MM)", d.EndTime.String()))
	if err != nil {
		return d, err
	}
	d.Date = date
	d.StartTime = start
	d.EndTime = end
	d.Title = j.promptDefault("Titulo", d.Title)
	d.Content = j.promptDefault("Relato", d.Content)
	d.Tags = strings.Split(j.promptDefault("Etiquetas (separadas por coma)", strings.Join(d.Tags, ",")), ",")

	lucid := "n"
	if d.IsLucid {
		lucid = "s"
	}
	d.IsLucid = strings.EqualFold(j.promptDefault("Lucido? (s/n)", lucid), "s")
	return d, nil
}

func (j *journal) stats(ctx context.Context) error {
	st, err := j.app.Stats.Compute(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Total: %d  Lucidos: %d  No lucidos: %d\n", st.Total, st.Lucid, st.NonLucid)
	fmt.Printf("Duracion promedio: %s\n", st.AverageLabel)
	for i, tc := range st.TopTags {
		fmt.Printf("  %d. %s (%d)\n", i+1, tc.Tag, tc.Count)
	}
	return nil
}

func (j *journal) reminder(ctx context.Context) error {
	current, err := j.app.Settings.Get(ctx)
	if err != nil {
		return err
	}
	state := "desactivado"
	if current.NotificationsEnabled {
		state = "activado"
	}
	fmt.Printf("Recordatorio %s a las %02d:%02d\n", state, current.NotificationHour, current.NotificationMinute)
	fmt.Println("[1] Activar/Desactivar")
	fmt.Println("[2] Cambiar hora")

	switch j.prompt("Opcion: ") {
	case "1":
		current, err = j.app.Settings.SetNotificationsEnabled(ctx, !current.NotificationsEnabled)
	case "2":
		var t domain.TimeOfDay
		t, err = domain.ParseTimeOfDay(j.prompt("Hora (HH:MM): "))
		if err != nil {
			return err
		}
		current, err = j.app.Settings.SetNotificationTime(ctx, t.Hour, t.Minute)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if next := j.app.Reminders.Next(); current.NotificationsEnabled && !next.IsZero() {
		fmt.Printf("Proximo recordatorio: %s\n", next.Format("2006-01-02 15:04"))
	}
	return nil
}

func (j *journal) signIn(ctx context.Context) error {
	fmt.Println("[1] Iniciar sesion")
	fmt.Println("[2] Registrarse")
	fmt.Println("[3] Olvide mi contraseña")
	choice := j.prompt("Opcion: ")
	emailAddr := j.prompt("Email: ")

	var (
		user domain.User
		err  error
	)
	switch choice {
	case "1":
		user, err = j.app.Auth.SignIn(ctx, emailAddr, j.prompt("Contraseña: "))
	case "2":
		password := j.prompt("Contraseña: ")
		user, err = j.app.Auth.SignUp(ctx, emailAddr, password, j.prompt("Nombre (opcional): "))
	case "3":
		return j.resetPassword(ctx, emailAddr)
	default:
		fmt.Println("Opcion invalida.")
		return nil
	}
	if err != nil {
		fmt.Println(service.UserMessage(err))
		return nil
	}
	j.session = domain.Session{UserID: user.ID, Email: user.Email}
	fmt.Printf("Bienvenido, %s.\n", user.Email)
	return nil
}

func (j *journal) resetPassword(ctx context.Context, emailAddr string) error {
	if err := j.app.Auth.RequestPasswordReset(ctx, emailAddr); err != nil {
		fmt.Println(service.UserMessage(err))
		return nil
	}
	fmt.Println("Te enviamos un codigo por email.")
	code := j.prompt("Codigo: ")
	password := j.prompt("Nueva contraseña: ")
	if err := j.app.Auth.ConfirmPasswordReset(ctx, emailAddr, code, password); err != nil {
		fmt.Println(service.UserMessage(err))
		return nil
	}
	fmt.Println("Contraseña actualizada.")
	return nil
}
