package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	json "github.com/KevinWang15/go-json5"

	"github.com/bob-anderson-ok/DOEcamera/imaging"
	"github.com/bob-anderson-ok/DOEcamera/optics"
	"github.com/bob-anderson-ok/DOEcamera/report"
)

// !!!!! This MUST match the app name given in the run configuration !!!!!
const version = "0_3_0"

// !!!!! This MUST match the app name given in the run configuration !!!!!

// RunParams holds the run-level settings of a parameter file. The camera
// itself is described by the keys listed in optics.BaseParams and friends.
type RunParams struct {
	ShowInput           bool
	WindowSizePixels    int
	Title               string
	OutputFolder        string
	PathToSceneImage    string
	PathToDepthmap      string
	PathToControlPoints string
	Occlusion           bool
	Padding             imaging.PaddingMode
	RandomSeed          int64
	Training            bool
	MontageCellPixels   int
	MTFDepthIndex       int
}

func usage() {
	fmt.Println("\n\tUsage: DOEcamera <parameter-file>")
	fmt.Println("\nCamera parameters:")
	specs := append(optics.BaseParams(), optics.ClassicParams()...)
	specs = append(specs, optics.BSplineParams()...)
	fmt.Print(optics.Usage(specs))
}

func main() {

	programStart := time.Now()

	args := os.Args

	if len(args) != 2 {
		fmt.Println("\n\tWrong number of arguments.")
		usage()
		os.Exit(1)
	}

	path := args[1]

	// Read the Json5 (or Json) parameter file
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tAttempt to read input file %q failed: %w\n", path, err))
		os.Exit(2)
	}

	// Parse json(5) data into a generic container
	var jsonTable map[string]interface{}
	err = json.Unmarshal(data, &jsonTable)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tFormat error in file %q: %w\n", path, err))
		os.Exit(3)
	}

	var run RunParams
	msg, ok := validateJsonFileAndFillRun(jsonTable, &run)
	if !ok {
		fmt.Println(msg)
		os.Exit(4)
	}

	if run.ShowInput {
		fmt.Printf("%s", "\nPrintout of  complete jsonTable contents...\n")
		fmt.Println(string(data))
	}

	fmt.Printf("\nVersion %s\n\n", version)

	cfg, classicOpts, bsplineOpts, err := extractCameraOptions(jsonTable)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tCamera parameters in %q are invalid: %w\n", path, err))
		os.Exit(5)
	}

	start := time.Now()
	cam, err := optics.NewBSplineApertureCamera(cfg, classicOpts, bsplineOpts)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tBuilding the camera failed: %w\n", err))
		os.Exit(6)
	}
	fmt.Printf("Building the camera (%s initialization) took %s\n", bsplineOpts.InitType, time.Since(start))

	if run.PathToControlPoints != "" {
		var params map[string]interface{}
		if err := report.ReadYAML(run.PathToControlPoints, &params); err != nil {
			fmt.Println(fmt.Errorf("\n\tReading control points failed: %w\n", err))
			os.Exit(7)
		}
		if err := cam.LoadParameters(params); err != nil {
			fmt.Println(fmt.Errorf("\n\tLoading control points from %q failed: %w\n", run.PathToControlPoints, err))
			os.Exit(7)
		}
		fmt.Printf("Control points loaded from %s\n", run.PathToControlPoints)
	}

	printOpticsSummary(os.Stdout, cam)

	if err := os.MkdirAll(run.OutputFolder, 0o755); err != nil {
		fmt.Println(fmt.Errorf("\n\tCannot create output folder %q: %w\n", run.OutputFolder, err))
		os.Exit(9)
	}

	req := optics.PSFRequest{
		Training: run.Training,
		UseCache: true,
		Rand:     rand.New(rand.NewSource(run.RandomSeed)),
	}

	start = time.Now()
	psf, err := cam.PSFAtCamera(cfg.ImageSize, req)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tPSF computation failed: %w\n", err))
		os.Exit(8)
	}
	fmt.Printf("Calculation of the PSF %v took %s\n", psf.Shape(), time.Since(start))

	energy, outMax, err := cam.PSFOutEnergy(cfg.ImageSize[0] / 2)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tPSF out-energy computation failed: %w\n", err))
		os.Exit(8)
	}
	fmt.Printf("PSF energy outside the central %d pixel window: mean %.3e, max %.3e\n", cfg.ImageSize[0]/2, energy, outMax)

	mtfLoss, err := cam.MTFLoss(true)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tMTF computation failed: %w\n", err))
		os.Exit(8)
	}
	fmt.Printf("Normalized MTF loss is %.4e\n", mtfLoss)

	outputs, err := writeCameraOutputs(cam, psf, run)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tWriting outputs failed: %w\n", err))
		os.Exit(9)
	}

	if run.PathToSceneImage != "" {
		channels, depthmap, err := loadScene(run, cam.NWavelengths())
		if err != nil {
			fmt.Println(fmt.Errorf("\n\tLoading the scene failed: %w\n", err))
			os.Exit(10)
		}

		cam.Former = imaging.Former{Padding: run.Padding}
		start = time.Now()
		captured, _, _, err := cam.Forward(channels, depthmap, run.Occlusion, req)
		if err != nil {
			fmt.Println(fmt.Errorf("\n\tImage formation failed: %w\n", err))
			os.Exit(11)
		}
		fmt.Printf("Image formation took %s\n", time.Since(start))

		capturedFiles, err := writeCaptured(captured, run.OutputFolder)
		if err != nil {
			fmt.Println(fmt.Errorf("\n\tWriting the captured image failed: %w\n", err))
			os.Exit(12)
		}
		outputs = append(outputs, capturedFiles...)
	}

	for _, name := range outputs {
		fmt.Printf("Wrote %s\n", name)
	}

	fmt.Printf("\nTotal program run time is %s\n", time.Since(programStart))

	if run.WindowSizePixels > 0 {
		showWindows(run, outputs)
	}
}

func printOpticsSummary(w io.Writer, cam *optics.BSplineApertureCamera) {
	fmt.Fprintf(w, "F-number is f/%.1f\n", cam.FNumber())
	fmt.Fprintf(w, "Sensor distance is %.4f mm\n", cam.SensorDistance()*1e3)
	fmt.Fprintf(w, "Aperture pitch is %.3f um (oversampling factor %d)\n", cam.AperturePitch()*1e6, cam.ScaleFactor())
	fmt.Fprintf(w, "Slope range is %.4e\n", cam.SlopeRange())
	fmt.Fprintf(w, "Center wavelength is %.1f nm\n", cam.CenterWavelength()*1e9)
	fmt.Fprint(w, "Depth grid (m):")
	for _, d := range cam.DepthGrid() {
		fmt.Fprintf(w, " %.3f", d)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
}

// showWindows opens a preview window per rendered image and blocks until
// the main one is closed.
func showWindows(run RunParams, outputs []string) {
	// We supply an ID (hopefully unique) because we may need to use the preferences API
	myApp := app.NewWithID("com.gmail.ok.anderson.bob.doecamera")
	size := float32(run.WindowSizePixels)

	var first fyne.Window
	for _, name := range outputs {
		ext := filepath.Ext(name)
		if ext != ".png" {
			continue
		}
		img := canvas.NewImageFromFile(name)
		img.FillMode = canvas.ImageFillContain
		img.SetMinSize(fyne.NewSize(size, size))

		title := filepath.Base(name)
		if run.Title != "" {
			title = run.Title + " - " + title
		}
		w := myApp.NewWindow(title)
		w.SetPadded(false)
		w.SetContent(container.NewStack(img))
		w.Resize(fyne.NewSize(size, size))
		if first == nil {
			first = w
			w.CenterOnScreen()
			continue
		}
		w.Show()
	}
	if first != nil {
		first.ShowAndRun()
	}
}
